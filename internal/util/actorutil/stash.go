package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash holds messages received in a state that cannot serve them yet, they
// are replayed to self with their original sender.
type Stash struct {
	stash []stashElem
}

type stashElem struct {
	msg    any
	sender *actor.PID
}

func (stash *Stash) Stash(ctx actor.Context, msg any) {
	stash.stash = append(stash.stash, stashElem{
		msg:    msg,
		sender: ctx.Sender(),
	})
}

func (stash *Stash) Len() int {
	return len(stash.stash)
}

func (stash *Stash) UnstashAll(ctx actor.Context) {
	for _, elem := range stash.stash {
		stash.replay(ctx, elem)
	}
	stash.stash = nil
}

func (stash *Stash) UnstashOldest(ctx actor.Context) {
	if len(stash.stash) > 0 {
		stash.replay(ctx, stash.stash[0])
		stash.stash = stash.stash[1:]
	}
}

func (stash *Stash) replay(ctx actor.Context, elem stashElem) {
	if elem.sender == nil {
		ctx.Send(ctx.Self(), elem.msg)
		return
	}
	ctx.RequestWithCustomSender(ctx.Self(), elem.msg, elem.sender)
}
