package main // Entry point package

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cafetec/cafetec-backend/internal/config"
	"github.com/cafetec/cafetec-backend/internal/database"
	"github.com/cafetec/cafetec-backend/internal/handler"
	"github.com/cafetec/cafetec-backend/internal/middleware"
	"github.com/cafetec/cafetec-backend/internal/queue"
	"github.com/cafetec/cafetec-backend/internal/repository"
	"github.com/cafetec/cafetec-backend/internal/router"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: time.Duration(cfg.DBConnTTLMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	slots := repository.NewSlotRepo(db)
	products := repository.NewProductRepo(db)
	categories := repository.NewCategoryRepo(db)
	statuses := repository.NewStatusRepo(db)
	orders := repository.NewOrderRepo(db)
	history := repository.NewHistoryRepo(db)
	payments := repository.NewPaymentRepo(db)

	invalidate := middleware.InvalidateCache(rdb, cacheCfg)

	auth := handler.NewAuthHandler(users, tokens, &cfg)
	catalog := handler.NewCatalogHandler(products, categories, payments, statuses)
	slotViews := handler.NewSlotHandler(slots)
	orderH := handler.NewOrderHandler(orders, slots, products, statuses, history, payments, users)
	adminOrders := handler.NewAdminOrderHandler(orders, statuses, history, payments)
	adminCatalog := handler.NewAdminCatalogHandler(products, categories, invalidate)
	adminSlots := handler.NewAdminSlotHandler(slots, invalidate)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(rateCfg, rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterPublic(e, catalog, slotViews, middleware.NewRedisCache(rdb, cacheCfg))
	router.RegisterCustomer(e, orderH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminOrders, orderH, adminCatalog, adminSlots, cfg.JWTSecret)

	// Background consumer appends order notifications to logs/orders.log.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
