package events

// Topic constants for events published by the storefront.
const (
	TopicStoreUpdated     = "config.store.updated"
	TopicZonesUpdated     = "config.zones.updated"
	TopicSurchargeUpdated = "config.surcharge.updated"
	TopicCouponsUpdated   = "config.coupons.updated"
	TopicCurrencyUpdated  = "config.currency.updated"
	TopicProductsUpdated  = "config.products.updated"
	TopicOrderCreated     = "order.created"
)

// ConfigTopics returns the topics emitted by store configuration changes.
func ConfigTopics() []string {
	return []string{
		TopicStoreUpdated,
		TopicZonesUpdated,
		TopicSurchargeUpdated,
		TopicCouponsUpdated,
		TopicCurrencyUpdated,
		TopicProductsUpdated,
	}
}
