package actor

import (
	"context"
	"sync"

	"github.com/berfenger/freeds2mqtt/internal/mqtt"
	"github.com/berfenger/freeds2mqtt/pkg/freeds"
)

type stubDeviceClient struct {
	mu        sync.Mutex
	consumers []freeds.Consumer
	snapshot  freeds.Snapshot
	available bool
	commands  []int
	probes    int
}

func newStubDeviceClient() *stubDeviceClient {
	return &stubDeviceClient{}
}

func (s *stubDeviceClient) RegisterConsumer(fn freeds.Consumer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers = append(s.consumers, fn)
	return func() {}
}

func (s *stubDeviceClient) Probe(ctx context.Context) (freeds.ProbeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes++
	return freeds.ProbeResult{
		Mode: freeds.ModeWebSocket,
		Info: freeds.DeviceInfo{Version: "1.0.7", Title: "FreeDS"},
	}, nil
}

func (s *stubDeviceClient) SendCommand(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, id)
	return nil
}

func (s *stubDeviceClient) Reboot(ctx context.Context) error {
	return nil
}

func (s *stubDeviceClient) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *stubDeviceClient) LatestSnapshot() freeds.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *stubDeviceClient) LastError() error {
	return nil
}

func (s *stubDeviceClient) Mode() freeds.Mode {
	return freeds.ModeWebSocket
}

func (s *stubDeviceClient) emit(update freeds.Update) {
	s.mu.Lock()
	s.snapshot = update.Snapshot
	s.available = update.Available
	consumers := append([]freeds.Consumer(nil), s.consumers...)
	s.mu.Unlock()
	for _, c := range consumers {
		c(update)
	}
}

func (s *stubDeviceClient) sentCommands() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.commands...)
}

func (s *stubDeviceClient) probeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probes
}

func parsedCommand(command, id, payload string) *mqtt.ParsedMQTTCommand {
	return &mqtt.ParsedMQTTCommand{
		Command:  command,
		DeviceId: id,
		Payload:  payload,
	}
}
