// Package app wires every component together and exposes the HTTP API
package app

import (
	"bitwise74/blog-api/app/comment"
	"bitwise74/blog-api/app/post"
	"bitwise74/blog-api/app/root"
	"bitwise74/blog-api/app/user"
	"bitwise74/blog-api/db"
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/internal/auth"
	"bitwise74/blog-api/internal/blog"
	"bitwise74/blog-api/internal/cleanup"
	"bitwise74/blog-api/internal/cooldown"
	"bitwise74/blog-api/internal/like"
	"bitwise74/blog-api/internal/mail"
	"bitwise74/blog-api/internal/otp"
	"bitwise74/blog-api/internal/storage"
	"bitwise74/blog-api/pkg/middleware"
	"bitwise74/blog-api/pkg/security"
	"bitwise74/blog-api/pkg/validators"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	mediaPath    = "/media"
	jsonMaxBytes = 1 << 20
)

type App struct {
	Router *gin.Engine
	Deps   *internal.Deps

	closers []func() error
}

// Close stops background work. Queued mail is delivered before it returns.
func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// NewRouter builds the whole application from the loaded config. Background
// workers live until ctx is cancelled or Close is called.
func NewRouter(ctx context.Context) (*App, error) {
	if err := makeLogger(viper.GetString("app.log_level")); err != nil {
		return nil, err
	}

	if err := validators.Register(); err != nil {
		return nil, fmt.Errorf("failed to register validators, %w", err)
	}

	a := &App{}

	database, err := db.New(db.Config{
		Driver: viper.GetString("db.driver"),
		DSN:    viper.GetString("db.dsn"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.onClose(func() error {
		sqlDB, err := database.DB()
		if err != nil {
			return err
		}

		return sqlDB.Close()
	})

	tokens := security.NewIssuer(
		viper.GetString("jwt.secret"),
		viper.GetDuration("jwt.access_ttl"),
		viper.GetDuration("jwt.refresh_ttl"),
	)

	mailer, err := a.newMailer()
	if err != nil {
		a.Close()
		return nil, err
	}

	limiter := a.newCooldown()

	store, err := newStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	expiry := time.Duration(viper.GetInt("otp.expiry_minutes")) * time.Minute

	postLikes := like.New(database, like.Posts)
	commentLikes := like.New(database, like.Comments)

	d := &internal.Deps{
		DB:     database,
		Tokens: tokens,
		Auth: auth.New(auth.Options{
			DB:       database,
			Argon:    security.New(),
			Tokens:   tokens,
			OTP:      otp.New(otp.NewGormStore(database), otp.Config{Expiry: expiry}),
			Mailer:   mailer,
			Cooldown: limiter,
		}),
		Blog:          blog.New(database, postLikes, commentLikes, store),
		PostLikes:     postLikes,
		CommentLikes:  commentLikes,
		MaxUploadSize: viper.GetInt64("upload.max_size"),
		SecureCookies: viper.GetBool("host.ssl.enabled"),
	}
	a.Deps = d

	c, err := cleanup.StartOTPCleanup(database, cleanup.OTPConfig{
		Schedule:  viper.GetString("otp.cleanup_schedule"),
		Expiry:    expiry,
		Retention: time.Duration(viper.GetInt("otp.retention_hours")) * time.Hour,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.onClose(func() error {
		<-c.Stop().Done()
		return nil
	})

	a.Router = newEngine(ctx, d, engineConfig{
		Origins:   viper.GetStringSlice("host.cors"),
		RateLimit: viper.GetInt("security.rate_limit"),
		MediaRoot: localRoot(),
	})

	return a, nil
}

// newMailer hands reset mails to asynq when redis is configured and to an
// in-process worker pool otherwise
func (a *App) newMailer() (mail.Dispatcher, error) {
	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     viper.GetString("mail.host"),
		Port:     viper.GetInt("mail.port"),
		Username: viper.GetString("mail.username"),
		Password: viper.GetString("mail.password"),
		From:     viper.GetString("mail.sender"),
	})

	workers := viper.GetInt("mail.workers")

	if addr := viper.GetString("redis.addr"); addr != "" {
		opt := asynq.RedisClientOpt{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		}

		srv, mux := mail.NewWorker(opt, sender, workers)
		if err := srv.Start(mux); err != nil {
			return nil, fmt.Errorf("failed to start mail worker, %w", err)
		}
		a.onClose(func() error {
			srv.Shutdown()
			return nil
		})

		dispatcher := mail.NewAsynqDispatcher(opt)
		a.onClose(dispatcher.Close)

		zap.L().Info("Mail is delivered through asynq", zap.String("redis", addr))
		return dispatcher, nil
	}

	pool := mail.NewPool(sender, workers, viper.GetInt("mail.queue_size"))
	pool.StartWorkerPool()
	a.onClose(pool.Close)

	return pool, nil
}

// newCooldown shares reset cooldowns through redis when it is configured
func (a *App) newCooldown() cooldown.Limiter {
	window := time.Duration(viper.GetInt("otp.cooldown_seconds")) * time.Second

	if addr := viper.GetString("redis.addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})
		a.onClose(rdb.Close)

		return cooldown.NewRedis(rdb, "cooldown:password-reset:", window)
	}

	m := cooldown.NewMemory(window)
	a.onClose(m.Close)

	return m
}

func newStore(ctx context.Context) (storage.Store, error) {
	switch viper.GetString("storage.type") {
	case "local":
		s, err := storage.NewLocal(viper.GetString("storage.local_path"), mediaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage, %w", err)
		}

		return s, nil
	case "s3":
		s, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          viper.GetString("s3.bucket"),
			Region:          viper.GetString("s3.region"),
			AccessKeyID:     viper.GetString("s3.access_key_id"),
			SecretAccessKey: viper.GetString("s3.secret_access_key"),
			Endpoint:        viper.GetString("s3.endpoint"),
			R2AccountID:     viper.GetString("cloudflare.account_id"),
			PublicURL:       viper.GetString("s3.public_url"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}

		return s, nil
	default:
		zap.L().Warn("File storage is disabled, posts can't have cover photos")
		return storage.Nop{}, nil
	}
}

func localRoot() string {
	if viper.GetString("storage.type") != "local" {
		return ""
	}

	return viper.GetString("storage.local_path")
}

type engineConfig struct {
	Origins   []string
	RateLimit int
	// MediaRoot is served under /media when set
	MediaRoot string
}

func newEngine(ctx context.Context, d *internal.Deps, cfg engineConfig) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 5 << 20

	if cfg.MediaRoot != "" {
		router.Static(mediaPath, cfg.MediaRoot)
	}

	jwt := middleware.NewJWTMiddleware(d.DB, d.Tokens)
	turnstile := middleware.NewTurnstileMiddleware()
	jsonLimit := middleware.BodySizeLimiter(jsonMaxBytes)
	uploadLimit := middleware.BodySizeLimiter(d.MaxUploadSize + jsonMaxBytes)

	main := router.Group("/api/v1")
	if cfg.RateLimit > 0 {
		main.Use(middleware.RateLimiterMiddleware(ctx, middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit,
			Burst:             cfg.RateLimit * 2,
		}))
	}

	{
		// HEAD /api/v1/heartbeat		-> Used to check if the server is alive
		main.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/v1/validate		-> Validates a JWT token
		main.GET("/validate", jwt, root.Validate)
	}

	users := main.Group("/auth", jsonLimit)
	{
		// POST /api/v1/auth/signup		-> Registers a new user
		users.POST("/signup", turnstile, func(c *gin.Context) { user.UserSignup(c, d) })

		// POST /api/v1/auth/login		-> Logs in a user and returns a token pair
		users.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/v1/auth/token/refresh	-> Trades a refresh token for an access token
		users.POST("/token/refresh", func(c *gin.Context) { user.UserRefresh(c, d) })

		// POST /api/v1/auth/password-reset	-> Mails a one-time code to the user
		users.POST("/password-reset", turnstile, func(c *gin.Context) { user.UserPasswordReset(c, d) })

		// POST /api/v1/auth/password-confirm	-> Sets a new password using the code
		users.POST("/password-confirm", func(c *gin.Context) { user.UserPasswordConfirm(c, d) })

		// GET /api/v1/auth/me			-> Returns the logged in user
		users.GET("/me", jwt, func(c *gin.Context) { user.UserFetch(c, d) })
	}

	posts := main.Group("/posts", jwt)
	{
		// GET /api/v1/posts			-> Lists posts, newest first
		posts.GET("", func(c *gin.Context) { post.PostList(c, d) })

		// POST /api/v1/posts			-> Creates a post, optionally with a cover photo
		posts.POST("", uploadLimit, func(c *gin.Context) { post.PostCreate(c, d) })

		// GET /api/v1/posts/:id		-> Returns a single post
		posts.GET("/:id", func(c *gin.Context) { post.PostGet(c, d) })

		// PUT /api/v1/posts/:id		-> Updates a post owned by the user
		posts.PUT("/:id", uploadLimit, func(c *gin.Context) { post.PostUpdate(c, d) })

		// PATCH /api/v1/posts/:id		-> Same as PUT
		posts.PATCH("/:id", uploadLimit, func(c *gin.Context) { post.PostUpdate(c, d) })

		// DELETE /api/v1/posts/:id		-> Deletes a post owned by the user
		posts.DELETE("/:id", func(c *gin.Context) { post.PostDelete(c, d) })

		// POST /api/v1/posts/:id/like		-> Likes or unlikes a post
		posts.POST("/:id/like", func(c *gin.Context) { post.PostLike(c, d) })

		// GET /api/v1/posts/:id/likes		-> Lists who likes a post
		posts.GET("/:id/likes", func(c *gin.Context) { post.PostLikes(c, d) })
	}

	comments := main.Group("/comments", jwt, jsonLimit)
	{
		// GET /api/v1/comments?post_id=	-> Lists the comments of a post
		comments.GET("", func(c *gin.Context) { comment.CommentList(c, d) })

		// POST /api/v1/comments		-> Comments on a post
		comments.POST("", func(c *gin.Context) { comment.CommentCreate(c, d) })

		// GET /api/v1/comments/:id		-> Returns a single comment
		comments.GET("/:id", func(c *gin.Context) { comment.CommentGet(c, d) })

		// PUT /api/v1/comments/:id		-> Updates a comment owned by the user
		comments.PUT("/:id", func(c *gin.Context) { comment.CommentUpdate(c, d) })

		// PATCH /api/v1/comments/:id		-> Same as PUT
		comments.PATCH("/:id", func(c *gin.Context) { comment.CommentUpdate(c, d) })

		// DELETE /api/v1/comments/:id		-> Deletes a comment owned by the user
		comments.DELETE("/:id", func(c *gin.Context) { comment.CommentDelete(c, d) })

		// POST /api/v1/comments/:id/like	-> Likes or unlikes a comment
		comments.POST("/:id/like", func(c *gin.Context) { comment.CommentLike(c, d) })

		// GET /api/v1/comments/:id/likes	-> Lists who likes a comment
		comments.GET("/:id/likes", func(c *gin.Context) { comment.CommentLikes(c, d) })
	}

	return router
}
