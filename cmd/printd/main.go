package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/api/handlers"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/api/middleware"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/archive"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/config"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/core"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/db"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/discovery"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/escpos"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/transport"
	"github.com/Ayesha-Siddiqa-khan/AssanPOS-V1.4-offline-sub003/internal/webhook"
)

func main() {
	configPath := flag.String("config", "printd.yaml", "path to config file")
	flag.Parse()

	log.SetPrefix("[printd] ")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	encoder := escpos.NewEncoder()
	client := transport.NewClient(&cfg.Transport)
	prober := discovery.NewProber(client, &cfg.Discovery)

	worker := core.NewWorker(db.Jobs, encoder, client, nil, &cfg.Queue)
	if archiver := archive.NewArchiver(&cfg.Archive); archiver != nil {
		worker.SetArchiver(archiver)
	}

	var sender *webhook.Sender
	if sender = webhook.NewSender(&cfg.Webhook); sender != nil {
		worker.SetEventSink(sender)
		log.Printf("webhook notifications enabled: %s", cfg.Webhook.URL)
	}

	worker.Start()

	auth, err := middleware.NewAuthMiddleware()
	if err != nil {
		log.Fatalf("failed to initialize auth: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	registerRoutes(router, auth, worker, prober)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	worker.Stop()
	if sender != nil {
		sender.Stop()
	}
	log.Println("stopped")
}

func registerRoutes(router *gin.Engine, auth *middleware.AuthMiddleware, worker *core.Worker, prober *discovery.Prober) {
	printers := handlers.NewPrinterHandler(worker, prober)
	jobs := handlers.NewJobHandler(worker)

	v1 := router.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/setup", auth.Setup)
		authGroup.POST("/login", auth.Login)
		authGroup.GET("/status", auth.Status)
	}

	protected := v1.Group("")
	protected.Use(auth.RequireAuth())
	{
		protected.POST("/printers", printers.CreatePrinter)
		protected.GET("/printers", printers.ListPrinters)
		protected.GET("/printers/:id", printers.GetPrinter)
		protected.PUT("/printers/:id", printers.UpdatePrinter)
		protected.DELETE("/printers/:id", printers.DeletePrinter)
		protected.POST("/printers/:id/default", printers.SetDefaultPrinter)
		protected.POST("/printers/:id/test", printers.TestPrint)
		protected.POST("/printers/discover", printers.Discover)

		protected.POST("/jobs", jobs.EnqueueJob)
		protected.GET("/jobs", jobs.ListJobs)
		protected.GET("/jobs/:id", jobs.GetJob)
		protected.POST("/jobs/:id/retry", jobs.RetryJob)
		protected.POST("/jobs/:id/cancel", jobs.CancelJob)
		protected.DELETE("/jobs/successful", jobs.ClearSuccessful)

		protected.POST("/queue/process", jobs.ProcessQueue)
		protected.GET("/queue/stats", jobs.QueueStats)
	}
}
