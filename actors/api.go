package actors

import (
	"context"

	"github.com/pkg/errors"
)

// CreateActor is a utility function that wires a fresh mailbox to a fresh
// processing loop for the given actor, admits the loop onto the system's
// executor and returns the ActorRef, so you can send it messages
func CreateActor[M Message](ctx context.Context, system *ActorSystem, actor Actor[M], opts ...SpawnOption) (*ActorRef[M], error) {
	if system.released.Load() {
		return nil, ErrSystemReleased
	}

	config := system.core.config
	// get the observability span
	_, span := getSpanContext(ctx, config.tracer, "ActorSystem.CreateActor")
	defer span.End()

	spawnConfig := &spawnConfig{mailboxSize: config.mailboxSize}
	for _, opt := range opts {
		opt(spawnConfig)
	}

	mailbox := newMailbox[M](spawnConfig.mailboxSize)
	container := newContainer(actor, mailbox, config)

	task, err := system.core.executor.spawn(container)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "failed to create actor %s", container.actorID)
	}

	config.logger.Debugf("[system] (%s) actor created, mailbox size=%d", container.actorID, mailbox.capacity())
	return newActorRef(container.actorID, mailbox, task, config), nil
}
