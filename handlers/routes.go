package handlers

import "github.com/gin-gonic/gin"

type Routes struct {
	Auth      *AuthHandler
	Portfolio *PortfolioHandler
	Market    *MarketHandler
	Health    gin.HandlerFunc
}

// Register mounts the public routes and, behind requireAuth, the per-user ones.
func (rt Routes) Register(router gin.IRouter, requireAuth gin.HandlerFunc) {
	if rt.Health != nil {
		router.GET("/healthz", rt.Health)
	}
	if rt.Auth != nil {
		router.POST("/signup", rt.Auth.Signup)
		router.POST("/login", rt.Auth.Login)
		router.POST("/refresh", rt.Auth.Refresh)
	}

	auth := router.Group("/")
	auth.Use(requireAuth)
	if p := rt.Portfolio; p != nil {
		auth.POST("/stocks", p.AddStock)
		auth.DELETE("/stocks/:symbol", p.RemoveStock)
		auth.GET("/portfolio", p.GetPortfolio)
		auth.GET("/portfolio/summary", p.GetSummary)
		auth.GET("/portfolio/metrics", p.GetMetrics)
		auth.GET("/portfolio/breakdown", p.GetBreakdown)
		auth.GET("/portfolio/history", p.GetHistory)
		auth.GET("/portfolio/correlation", p.GetCorrelation)
		auth.POST("/portfolio/import", p.Import)
		auth.GET("/portfolio/export", p.Export)
		auth.GET("/portfolio/ledger", p.GetLedger)
	}
	if m := rt.Market; m != nil {
		auth.GET("/prices/:symbol", m.GetStockPrice)
		auth.GET("/history/:symbol", m.GetHistoricalData)
		auth.GET("/info/:symbol", m.GetInfo)
		auth.GET("/news/:symbol", m.GetNews)
		auth.GET("/compare", m.Compare)
	}
}
