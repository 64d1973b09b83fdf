package freeds

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRebootTarget struct {
	calls     atomic.Int32
	offline   atomic.Bool
	rebootErr error
}

func (f *fakeRebootTarget) Reboot(ctx context.Context) error {
	f.calls.Add(1)
	return f.rebootErr
}

func (f *fakeRebootTarget) Available() bool {
	return !f.offline.Load()
}

func TestRebootGuardIgnoresSecondPress(t *testing.T) {

	assert := assert.New(t)

	target := &fakeRebootTarget{}
	guard := NewRebootGuard(target, time.Minute, 10*time.Millisecond, nil)
	defer guard.Close()

	sent, err := guard.Press(context.Background())
	assert.NoError(err)
	assert.True(sent)

	sent, err = guard.Press(context.Background())
	assert.NoError(err)
	assert.False(sent)

	assert.Equal(int32(1), target.calls.Load())
	assert.True(guard.Pending())
}

func TestRebootGuardClearsOnReturn(t *testing.T) {

	assert := assert.New(t)

	target := &fakeRebootTarget{}
	guard := NewRebootGuard(target, time.Minute, 10*time.Millisecond, nil)
	defer guard.Close()

	_, _ = guard.Press(context.Background())
	target.offline.Store(true)
	time.Sleep(50 * time.Millisecond)
	assert.True(guard.Pending())

	target.offline.Store(false)
	assert.Eventually(func() bool { return !guard.Pending() }, time.Second, 10*time.Millisecond)

	sent, _ := guard.Press(context.Background())
	assert.True(sent)
	assert.Equal(int32(2), target.calls.Load())
}

func TestRebootGuardCooldown(t *testing.T) {

	assert := assert.New(t)

	// the device never drops off, only the cooldown re-arms the button
	target := &fakeRebootTarget{}
	guard := NewRebootGuard(target, 100*time.Millisecond, 10*time.Millisecond, nil)
	defer guard.Close()

	_, _ = guard.Press(context.Background())
	assert.True(guard.Pending())
	assert.Eventually(func() bool { return !guard.Pending() }, time.Second, 10*time.Millisecond)

	sent, _ := guard.Press(context.Background())
	assert.True(sent)
}

func TestRebootGuardFailedRequest(t *testing.T) {

	assert := assert.New(t)

	target := &fakeRebootTarget{rebootErr: errors.New("boom")}
	guard := NewRebootGuard(target, time.Minute, 10*time.Millisecond, nil)
	defer guard.Close()

	sent, err := guard.Press(context.Background())
	assert.Error(err)
	assert.False(sent)
	assert.False(guard.Pending())
}
