package mqtt

import "fmt"

// Topic prefixes for the Builder Core event bus.
//
// All topics use the flat scheme: buildercore/{category}/{id}[/suffix]
const (
	// TopicPrefixEvent is the base for resource change events.
	TopicPrefixEvent = "buildercore/event"

	// TopicPrefixPresence is the base for user presence topics.
	TopicPrefixPresence = "buildercore/presence"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "buildercore/system"
)

// Topics provides builders for Builder Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.TemplateUpdated("tpl-a1b2c3d4")
//	// Returns: "buildercore/event/template/tpl-a1b2c3d4/updated"
type Topics struct{}

// TemplateUpdated returns the topic for template payload change events.
//
// Example: buildercore/event/template/tpl-a1b2c3d4/updated
func (Topics) TemplateUpdated(templateID string) string {
	return fmt.Sprintf("%s/template/%s/updated", TopicPrefixEvent, templateID)
}

// TemplateDeleted returns the topic for template deletion events.
//
// Example: buildercore/event/template/tpl-a1b2c3d4/deleted
func (Topics) TemplateDeleted(templateID string) string {
	return fmt.Sprintf("%s/template/%s/deleted", TopicPrefixEvent, templateID)
}

// UserPresence returns the retained presence topic for a user.
//
// Example: buildercore/presence/usr-a1b2c3d4
func (Topics) UserPresence(userID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixPresence, userID)
}

// SystemStatus returns the service status topic (online/offline via LWT).
//
// Example: buildercore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTemplateEvents returns a pattern matching all template events.
//
// Pattern: buildercore/event/template/+/+
func (Topics) AllTemplateEvents() string {
	return fmt.Sprintf("%s/template/+/+", TopicPrefixEvent)
}

// AllPresence returns a pattern matching all user presence topics.
//
// Pattern: buildercore/presence/+
func (Topics) AllPresence() string {
	return fmt.Sprintf("%s/+", TopicPrefixPresence)
}

// AllTopics returns a pattern matching all Builder Core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: buildercore/#
func (Topics) AllTopics() string {
	return "buildercore/#"
}
