// Package detection finds request-body fields whose values change between
// otherwise identical recordings, such as timestamps, generated ids and
// session tokens.
//
// The detector compares the bodies of a snapshot history structurally. JSON
// bodies are compared key by key and XML bodies element by element (by local
// name, so namespaces do not matter). Detection descends into a container only
// while its shape (object keys, array length, child element names) is the
// same in every body; as soon as the shape differs the container itself is
// reported. Every reported path becomes an ignore pattern the mock engine
// applies when matching playback requests:
//
//	json:timestamp
//	json:items[0].id
//	xml:///*[local-name()='order']/*[local-name()='createdAt']
//	xml:///*[local-name()='order']/@requestId
//
// Results are persisted per identity by ResultStore.
package detection
