package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicOrderCompleted = "order.completed"
	TopicCouponCreated  = "coupon.created"
	TopicCouponDeleted  = "coupon.deleted"
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
)

// DefaultTopics returns the canonical list of topics forwarded to background tasks.
func DefaultTopics() []string {
	return []string{
		TopicOrderCompleted,
		TopicCouponCreated,
		TopicCouponDeleted,
		TopicProductCreated,
		TopicProductUpdated,
		TopicProductDeleted,
	}
}
