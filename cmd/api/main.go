package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"unimarket/internal/adapter/api"
	"unimarket/internal/adapter/api/handler"
	apimiddleware "unimarket/internal/adapter/api/middleware"
	"unimarket/internal/adapter/api/router"
	"unimarket/internal/adapter/repository"
	"unimarket/internal/infrastructure/email"
	"unimarket/internal/infrastructure/firebase"
	"unimarket/internal/infrastructure/realtime"
	"unimarket/internal/infrastructure/websocket"
	"unimarket/internal/usecase"
	"unimarket/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opt option.ClientOption

	// Service account JSON in the environment wins (production); a file path
	// is the local-development fallback.
	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else {
		serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
		if serviceAccountPath == "" {
			serviceAccountPath = "./service-account.json"
		}

		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}

		log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
		opt = option.WithCredentialsFile(serviceAccountPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	fbAuth, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}
	authClient := firebase.NewAuthClient(fbAuth)

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)
	messageRepo := repository.NewFirestoreMessageRepository(firestoreClient)
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	notificationRepo := repository.NewFirestoreNotificationRepository(firestoreClient)
	counterRepo := repository.NewFirestoreEmailCounterRepository(firestoreClient)

	relay := realtime.NewRelay()

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	bridge := websocket.NewBridge(wsManager, relay)
	bridge.Start(ctx)

	emailSender := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	userUseCase := usecase.NewUserUseCase(userRepo)
	listingUseCase := usecase.NewListingUseCase(listingRepo)
	messageUseCase := usecase.NewMessageUseCase(messageRepo, conversationRepo, userRepo, listingRepo, relay)
	notificationUseCase := usecase.NewNotificationUseCase(
		notificationRepo,
		conversationRepo,
		userRepo,
		listingRepo,
		counterRepo,
		emailSender,
		cfg.PresenceThreshold,
		cfg.EmailDailyCap,
	)
	messageUseCase.SetDispatcher(notificationUseCase)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	chatHandler := handler.NewChatHandler(messageUseCase)
	notificationHandler := handler.NewNotificationHandler(notificationUseCase)
	listingHandler := handler.NewListingHandler(listingUseCase)
	userHandler := handler.NewUserHandler(userUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware, messageUseCase, userUseCase)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	router.SetupChatRouter(e, chatHandler, authMiddleware)
	router.SetupNotificationRouter(e, notificationHandler, authMiddleware)
	router.SetupListingRouter(e, listingHandler, authMiddleware)
	router.SetupUserRouter(e, userHandler, authMiddleware)
	router.SetupWebSocketRouter(e, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
