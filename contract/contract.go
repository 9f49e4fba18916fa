//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"officepulse/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
type EventSink interface {
	domain.Sink
}

// Submitter hands a command to the dispatch loop, blocking until it is accepted.
type Submitter interface {
	Submit(ctx context.Context, cmd domain.Command) error
}

// Classifier decides whether a chat message is on topic.
type Classifier interface {
	IsOnTopic(text string) bool
}

// Completer is the external text-completion service behind the assistant.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HistoryArchive persists the bounded chat window.
type HistoryArchive interface {
	Store(scope string, msg domain.ChatMessage) error
	Recent(scope string, limit int) ([]domain.ChatMessage, error)
	Prune(scope string, keep int) (int, error)
}

// StatsProvider answers with a snapshot of the live registries.
type StatsProvider interface {
	Stats(ctx context.Context) (domain.Stats, error)
}
