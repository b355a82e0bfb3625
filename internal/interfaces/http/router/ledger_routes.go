package router

import (
	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/erp/rentledger/internal/interfaces/http/handler"
)

// LedgerHandlers are the HTTP handlers of the ledger API
type LedgerHandlers struct {
	Leases         *handler.LeaseHandler
	Billings       *handler.BillingHandler
	Payments       *handler.PaymentHandler
	Metering       *handler.MeteringHandler
	Reports        *handler.ReportHandler
	PenaltyConfigs *handler.PenaltyConfigHandler
}

// LedgerGroups builds the ledger route groups. Every route is guarded by
// the capability it needs.
func LedgerGroups(h LedgerHandlers, guard Guard) []RouteRegistrar {
	leases := NewDomainGroup("leases", "/leases").WithGuard(guard)
	leases.POST("/:id/schedule", identity.CapLeaseSchedule, h.Leases.GenerateSchedule)
	leases.GET("/:id/billings", identity.CapBillingRead, h.Leases.ListBillings)
	leases.GET("/:id/balance-status", identity.CapBillingRead, h.Leases.BalanceStatus)

	billings := NewDomainGroup("billings", "/billings").WithGuard(guard)
	billings.GET("/:id/penalty", identity.CapBillingRead, h.Billings.Penalty)
	billings.PUT("/:id/penalty", identity.CapBillingPenalty, h.Billings.SetPenalty)
	billings.DELETE("/:id", identity.CapBillingDelete, h.Billings.Delete)
	billings.POST("/statuses/refresh", identity.CapBillingPenalty, h.Billings.RefreshStatuses)

	payments := NewDomainGroup("payments", "/payments").WithGuard(guard)
	payments.POST("", identity.CapPaymentApply, h.Payments.Apply)
	payments.GET("/:id", identity.CapBillingRead, h.Payments.Get)
	payments.POST("/:id/revert", identity.CapPaymentRevert, h.Payments.Revert)
	payments.POST("/:id/receipt", identity.CapPaymentApply, h.Payments.UploadReceipt)
	payments.GET("/:id/receipt", identity.CapBillingRead, h.Payments.ReceiptURL)

	meters := NewDomainGroup("meters", "/meters").WithGuard(guard)
	meters.POST("/:id/readings", identity.CapReadingSubmit, h.Metering.SubmitReadings)
	meters.POST("/:id/utility-billings", identity.CapUtilityBill, h.Metering.CreateUtilityBillings)

	readings := NewDomainGroup("readings", "/readings").WithGuard(guard)
	readings.POST("/:id/confirm", identity.CapReadingConfirm, h.Metering.ConfirmReading)

	reports := NewDomainGroup("reports", "/reports").WithGuard(guard)
	reports.GET("/rent", identity.CapReportRead, h.Reports.RentReport)
	reports.GET("/rent.csv", identity.CapReportRead, h.Reports.RentReportCSV)

	penalties := NewDomainGroup("penalty-configs", "/penalty-configs").WithGuard(guard)
	penalties.GET("", identity.CapBillingRead, h.PenaltyConfigs.List)
	penalties.PUT("/:type", identity.CapBillingPenalty, h.PenaltyConfigs.Set)

	return []RouteRegistrar{leases, billings, payments, meters, readings, reports, penalties}
}
