package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	RepairOrderStatusPending    = "PENDING"
	RepairOrderStatusInProgress = "IN_PROGRESS"
	RepairOrderStatusCompleted  = "COMPLETED"
	RepairOrderStatusCancelled  = "CANCELLED"
)

const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPartial = "PARTIAL"
	InvoiceStatusPaid    = "PAID"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	EmployeeRoleAdmin      = "ADMIN"
	EmployeeRoleManager    = "MANAGER"
	EmployeeRoleTechnician = "TECHNICIAN"
	EmployeeRoleFrontDesk  = "FRONT_DESK"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodCheck    = "CHECK"
	PaymentMethodTransfer = "TRANSFER"
)

// ── Websocket event types ──

const (
	EventRepairOrderCreated = "repair_order.created"
	EventRepairOrderUpdated = "repair_order.updated"
	EventRepairOrderDeleted = "repair_order.deleted"
	EventInvoiceCreated     = "invoice.created"
	EventPaymentRecorded    = "payment.recorded"
	EventInventoryLowStock  = "inventory.low_stock"
)

// LowStockThreshold is the quantity below which an inventory item counts as low stock.
const LowStockThreshold = 20
