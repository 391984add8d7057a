package kafka

// TopicPrefix namespaces every topic this module publishes to.
const TopicPrefix = "catalog"

// Topic builds a topic name such as "catalog.card.imported".
func Topic(aggregate, action string) string {
	return TopicPrefix + "." + aggregate + "." + action
}
