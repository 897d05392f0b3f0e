package routes

import (
	"curation-bff/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, curation *controllers.CurationController, proxy *controllers.ProxyController, auth gin.HandlerFunc) {
	r.GET("/health", proxy.Health)

	// Protected routes - every upstream call carries the caller's token
	protected := r.Group("/")
	protected.Use(auth)
	{
		// Single-product curation
		protected.POST("/curate/:productId", curation.CurateProduct)
		protected.POST("/curate-simple/:productId", curation.CurateSimple)
		protected.POST("/publish-curated/:productId", curation.PublishCurated)
		protected.POST("/reject/:productId", curation.Reject)

		// Async curation jobs
		protected.POST("/curate-async", curation.CurateAsync)
		protected.GET("/curation-jobs/:jobId", curation.GetJob)
		protected.POST("/curation-jobs/:jobId/reconcile", curation.ReconcileJob)
		protected.POST("/webhooks/curation-jobs", curation.JobWebhook)

		// Bulk operations
		protected.POST("/bulk-approve", curation.BulkApprove)
		protected.POST("/bulk-reject", curation.BulkReject)
		protected.POST("/bulk-delete", curation.BulkDelete)
		protected.POST("/bulk-curate", curation.BulkCurate)

		// Record store views
		protected.GET("/scraped-products", proxy.ListScrapedProducts)
		protected.GET("/scraped-products/:productId", proxy.GetScrapedProduct)
		protected.GET("/curation-stats", proxy.CurationStats)
	}
}
