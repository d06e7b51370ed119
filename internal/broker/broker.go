// Package broker publishes job run results to a message broker so
// external systems can react to maintenance outcomes without polling
// the stat table.
package broker

// MessageBroker is the minimal publishing surface the scheduler needs.
type MessageBroker interface {
	Publish(queue string, message []byte) error
	Close() error
}
