// Copyright 2025 Kothakunjo Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main runs the Kothakunjo chat server: the chat turn endpoint,
// conversation history CRUD, and health reporting.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kothakunjo/kothakunjo-server/internal/chat"
	"github.com/kothakunjo/kothakunjo-server/internal/config"
	"github.com/kothakunjo/kothakunjo-server/internal/diagnostics"
	"github.com/kothakunjo/kothakunjo-server/internal/factcheck"
	"github.com/kothakunjo/kothakunjo-server/internal/fallback"
	"github.com/kothakunjo/kothakunjo-server/internal/health"
	"github.com/kothakunjo/kothakunjo-server/internal/history"
	"github.com/kothakunjo/kothakunjo-server/internal/imagegen"
	"github.com/kothakunjo/kothakunjo-server/internal/provider"
	"github.com/kothakunjo/kothakunjo-server/internal/search"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceVersion = "1.0.0"

// vendorFailureThreshold is the absorbed-failure count at which the health
// report marks a vendor as degraded
const vendorFailureThreshold = 10

// Server wires the pipeline service, history store, and health manager
// behind the HTTP routes
type Server struct {
	cfg           *config.Config
	logger        *zap.Logger
	service       *chat.Service
	store         *history.Store
	healthManager *health.Manager
}

func main() {
	var configPath string
	var port string

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Kothakunjo chat server",
		Long:  "Runs the bilingual AI companion chat backend: provider-fallback chat completions, web search, fact-checking, and image generation.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configPath, port)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "./configs/config.yaml", "path to the configuration file")
	rootCmd.Flags().StringVar(&port, "port", "", "listen port (overrides configuration)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, portOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := config.WatchConfig(configPath, func(updated *config.Config) {
		logger.Info("Configuration reloaded",
			zap.Any("config", updated.MaskSensitiveValues()))
	}); err != nil {
		logger.Warn("Configuration hot-reload unavailable", zap.Error(err))
	}

	recorder := diagnostics.NewRecorder(logger)
	executor := fallback.NewExecutor(logger, recorder)

	groq, err := provider.NewGroq(cfg.Groq.APIKey, cfg.Groq.BaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to create Groq client", zap.Error(err))
	}

	gemini, err := provider.NewGemini(context.Background(), cfg.Gemini.APIKey, logger)
	if err != nil {
		logger.Fatal("Failed to create Gemini client", zap.Error(err))
	}
	defer func() { _ = gemini.Close() }()

	factCheckClient := factcheck.NewClient(cfg.Khoj.Endpoint, cfg.Khoj.APIKey, logger)
	searchClient := search.NewClient(cfg.Serper.Endpoint, cfg.Serper.APIKey, cfg.Serper.MaxResults, logger)
	imageGenerator := imagegen.NewGenerator(imagegen.Config{
		SynthesisEndpoint: cfg.Pollinations.Endpoint,
		SynthesisAPIKey:   cfg.Pollinations.APIKey,
		Model:             cfg.Pollinations.Model,
		Width:             cfg.Pollinations.Width,
		Height:            cfg.Pollinations.Height,
		SynthesisTimeout:  time.Duration(cfg.Pollinations.TimeoutSeconds) * time.Second,
		HostingEndpoint:   cfg.FreeImage.Endpoint,
		HostingAPIKey:     cfg.FreeImage.APIKey,
	}, logger)

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		logger.Fatal("Failed to open history store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	service := chat.NewService(cfg, groq, gemini, executor, factCheckClient, searchClient, imageGenerator, logger)

	healthManager := health.NewManager("kothakunjo-server", serviceVersion, logger)
	healthManager.AddChecker("history_db", health.DatabaseChecker("history", store.Ping))
	healthManager.AddChecker("vendor_credentials", health.CredentialChecker(map[string]bool{
		"groq":         cfg.Groq.APIKey != "",
		"gemini":       cfg.Gemini.APIKey != "",
		"serper":       cfg.Serper.APIKey != "",
		"khoj":         cfg.Khoj.APIKey != "",
		"pollinations": cfg.Pollinations.APIKey != "",
	}))
	healthManager.AddChecker("vendor_outages", health.VendorOutageChecker(recorder, vendorFailureThreshold))

	server := &Server{
		cfg:           cfg,
		logger:        logger,
		service:       service,
		store:         store,
		healthManager: healthManager,
	}

	router := server.routes()

	port := cfg.Server.Port
	if portOverride != "" {
		port = portOverride
	}

	logger.Info("Starting chat server",
		zap.String("port", port),
		zap.String("version", serviceVersion),
	)

	if err := router.Run(":" + port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	return nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}

	return zapCfg.Build()
}

// routes builds the gin router with all endpoints registered
func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.POST("/api/chat", s.handleChat)
	router.GET("/api/conversations", s.handleListConversations)
	router.POST("/api/conversations", s.handleCreateConversation)
	router.GET("/api/conversations/:id", s.handleGetConversation)
	router.PUT("/api/conversations/:id", s.handleUpdateConversation)
	router.DELETE("/api/conversations/:id", s.handleDeleteConversation)
	router.POST("/api/conversations/:id/messages", s.handleAppendMessage)

	return router
}

// handleChat runs one turn through the pipeline. Provider and vendor
// failures never surface here; only a malformed body produces an error
// response.
func (s *Server) handleChat(c *gin.Context) {
	var req chat.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate response",
			"details": err.Error(),
		})
		return
	}

	if req.IsTitleGen {
		title := s.service.Title(c.Request.Context(), req.Message)
		c.JSON(http.StatusOK, chat.TitleResponse{Title: title})
		return
	}

	resp := s.service.Turn(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	result := s.healthManager.Check(c.Request.Context())

	statusCode := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, result)
}

func (s *Server) handleListConversations(c *gin.Context) {
	conversations, err := s.store.ListConversations(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list conversations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if req.Title == "" {
		req.Title = "New Chat"
	}

	conv, err := s.store.CreateConversation(c.Request.Context(), req.Title)
	if err != nil {
		s.logger.Error("Failed to create conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(c *gin.Context) {
	id := c.Param("id")

	conv, err := s.store.GetConversation(c.Request.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to load conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}

	messages, err := s.store.GetMessages(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
	})
}

func (s *Server) handleUpdateConversation(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	err := s.store.RenameConversation(c.Request.Context(), id, req.Title)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to update conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation updated"})
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	id := c.Param("id")

	err := s.store.DeleteConversation(c.Request.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}

func (s *Server) handleAppendMessage(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Role    string `json:"role" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := s.store.AppendMessage(c.Request.Context(), id, req.Role, req.Content)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to append message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to append message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}
