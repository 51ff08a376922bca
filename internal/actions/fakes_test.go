package actions

import (
	"context"
	"fmt"
	"image"
	"path"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/gesture"
	"jordanella.com/offer-story-go/internal/logging"
)

// storySprites lists every sprite the built-in story routine uses
var storySprites = []string{
	"addtostory", "recents", "addsticker", "searchfield", "linksticker",
	"customizestickertext", "done", "linksticker-blue", "closefriends", "yourstory",
}

type MockSpriteRegistry struct {
	names    map[string]bool
	requests []cv.LocateRequest
}

func NewMockSpriteRegistry(names ...string) *MockSpriteRegistry {
	m := &MockSpriteRegistry{names: make(map[string]bool)}
	for _, n := range names {
		m.names[n] = true
	}
	return m
}

func (m *MockSpriteRegistry) Has(name string) bool {
	return m.names[name]
}

func (m *MockSpriteRegistry) Request(name string, opts ...cv.Option) (cv.LocateRequest, error) {
	if !m.names[name] {
		return cv.LocateRequest{}, fmt.Errorf("sprite not registered: %s", name)
	}
	req, err := cv.NewLocateRequest(name, image.NewRGBA(image.Rect(0, 0, 2, 2)), opts...)
	if err != nil {
		return cv.LocateRequest{}, err
	}
	m.requests = append(m.requests, req)
	return req, nil
}

// scriptedLocator returns queued outcomes per sprite, then "found" at the
// sprite's default region once the queue is empty
type scriptedLocator struct {
	regions map[string]cv.Region
	queue   map[string][]bool
	calls   []string
}

func newScriptedLocator() *scriptedLocator {
	return &scriptedLocator{regions: map[string]cv.Region{}, queue: map[string][]bool{}}
}

func (l *scriptedLocator) Locate(ctx context.Context, req cv.LocateRequest) (cv.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return cv.Outcome{}, err
	}
	l.calls = append(l.calls, req.Name)

	found := true
	if q := l.queue[req.Name]; len(q) > 0 {
		found, l.queue[req.Name] = q[0], q[1:]
	}
	if !found {
		return cv.Outcome{Attempts: req.MaxAttempts}, nil
	}

	region, ok := l.regions[req.Name]
	if !ok {
		region = cv.NewRegion(100, 100, 40, 20)
	}
	return cv.Outcome{Found: true, Region: region, Attempts: 1}, nil
}

func (l *scriptedLocator) count(name string) int {
	n := 0
	for _, c := range l.calls {
		if c == name {
			n++
		}
	}
	return n
}

type sentGesture struct {
	kind     gesture.CommandKind
	x0, y0   int
	x1, y1   int
	duration time.Duration
}

type recordingChannel struct {
	sent []sentGesture
}

func (c *recordingChannel) SendTap(ctx context.Context, x, y int) error {
	c.sent = append(c.sent, sentGesture{kind: gesture.KindTap, x0: x, y0: y})
	return nil
}

func (c *recordingChannel) SendDrag(ctx context.Context, x0, y0, x1, y1 int, duration time.Duration) error {
	c.sent = append(c.sent, sentGesture{kind: gesture.KindDrag, x0: x0, y0: y0, x1: x1, y1: y1, duration: duration})
	return nil
}

type recordingDevice struct {
	calls []string
}

func (d *recordingDevice) InputText(ctx context.Context, text string) error {
	d.calls = append(d.calls, "text "+text)
	return nil
}

func (d *recordingDevice) LaunchApp(ctx context.Context, pkg string) error {
	d.calls = append(d.calls, "launch "+pkg)
	return nil
}

func (d *recordingDevice) ForceStop(ctx context.Context, pkg string) error {
	d.calls = append(d.calls, "stop "+pkg)
	return nil
}

func (d *recordingDevice) PushMedia(ctx context.Context, local, folder, name string) (string, error) {
	d.calls = append(d.calls, "push "+local)
	return path.Join(folder, name), nil
}

func (d *recordingDevice) Remove(ctx context.Context, remote string) error {
	d.calls = append(d.calls, "rm "+remote)
	return nil
}

type MockBot struct {
	ctx      context.Context
	locator  *scriptedLocator
	channel  *recordingChannel
	gestures *gesture.Dispatcher
	device   *recordingDevice
	sprites  *MockSpriteRegistry
	vars     *VariableStore
	regions  *RegionMemory
	policy   gesture.PointPolicy
	settles  []time.Duration
	sleeps   []time.Duration
}

func NewMockBot(sprites ...string) *MockBot {
	b := &MockBot{
		ctx:     context.Background(),
		locator: newScriptedLocator(),
		channel: &recordingChannel{},
		device:  &recordingDevice{},
		sprites: NewMockSpriteRegistry(sprites...),
		vars:    NewVariableStore(),
		regions: NewRegionMemory(),
		policy:  gesture.Centered,
	}
	b.gestures = gesture.NewDispatcher(b.channel).WithSeed(1).WithSleeper(func(ctx context.Context, d time.Duration) error {
		b.settles = append(b.settles, d)
		return nil
	})
	return b
}

func (b *MockBot) Context() context.Context { return b.ctx }
func (b *MockBot) Locator() LocatorInterface { return b.locator }
func (b *MockBot) Gestures() GestureInterface { return b.gestures }
func (b *MockBot) Device() DeviceInterface { return b.device }
func (b *MockBot) Sprites() SpriteRegistryInterface { return b.sprites }
func (b *MockBot) Variables() VariableStoreInterface { return b.vars }
func (b *MockBot) Regions() *RegionMemory { return b.regions }
func (b *MockBot) Logger() *logging.Logger { return logging.Discard() }
func (b *MockBot) DefaultPolicy() gesture.PointPolicy { return b.policy }
func (b *MockBot) Sleep(ctx context.Context, d time.Duration) error {
	b.sleeps = append(b.sleeps, d)
	return ctx.Err()
}

func (b *MockBot) taps() []sentGesture {
	var taps []sentGesture
	for _, g := range b.channel.sent {
		if g.kind == gesture.KindTap {
			taps = append(taps, g)
		}
	}
	return taps
}
