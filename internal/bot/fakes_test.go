package bot

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"path"
	"time"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/database"
	"jordanella.com/offer-story-go/internal/gesture"
	"jordanella.com/offer-story-go/internal/offers"
	"jordanella.com/offer-story-go/pkg/templates"
)

var storySprites = []string{
	"addtostory", "recents", "addsticker", "searchfield", "linksticker",
	"customizestickertext", "done", "linksticker-blue", "closefriends", "yourstory",
}

// fakeController records every device command
type fakeController struct {
	serial   string
	commands []string
	taps     int
	drags    int
	screen   *image.RGBA
}

func (c *fakeController) Serial() string { return c.serial }

func (c *fakeController) InputText(ctx context.Context, text string) error {
	c.commands = append(c.commands, "text "+text)
	return nil
}

func (c *fakeController) LaunchApp(ctx context.Context, pkg string) error {
	c.commands = append(c.commands, "launch "+pkg)
	return nil
}

func (c *fakeController) ForceStop(ctx context.Context, pkg string) error {
	c.commands = append(c.commands, "stop "+pkg)
	return nil
}

func (c *fakeController) PushMedia(ctx context.Context, local, folder, name string) (string, error) {
	c.commands = append(c.commands, "push "+local)
	return path.Join(folder, name), nil
}

func (c *fakeController) Remove(ctx context.Context, remote string) error {
	c.commands = append(c.commands, "rm "+remote)
	return nil
}

func (c *fakeController) SendTap(ctx context.Context, x, y int) error {
	c.taps++
	return nil
}

func (c *fakeController) SendDrag(ctx context.Context, x0, y0, x1, y1 int, duration time.Duration) error {
	c.drags++
	return nil
}

func (c *fakeController) Capture(ctx context.Context) (*image.RGBA, error) {
	if c.screen == nil {
		return nil, errors.New("no screen")
	}
	return c.screen, nil
}

// fakeLocator finds every sprite except the missing ones. queue holds
// per-sprite outcomes consumed before falling back to that rule.
type fakeLocator struct {
	missing map[string]bool
	queue   map[string][]bool
	calls   []string
}

func newFakeLocator() *fakeLocator {
	return &fakeLocator{missing: map[string]bool{}, queue: map[string][]bool{}}
}

func (l *fakeLocator) Locate(ctx context.Context, req cv.LocateRequest) (cv.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return cv.Outcome{}, err
	}
	l.calls = append(l.calls, req.Name)

	found := !l.missing[req.Name]
	if q := l.queue[req.Name]; len(q) > 0 {
		found, l.queue[req.Name] = q[0], q[1:]
	}
	if !found {
		return cv.Outcome{Attempts: req.MaxAttempts}, nil
	}
	return cv.Outcome{Found: true, Region: cv.NewRegion(300, 600, 120, 40), Attempts: 1}, nil
}

func (l *fakeLocator) located(name string) bool {
	for _, c := range l.calls {
		if c == name {
			return true
		}
	}
	return false
}

func spriteRegistry(names ...string) *templates.Registry {
	reg := templates.NewRegistry("", templates.DefaultSettings())
	for _, n := range names {
		if err := reg.RegisterImage(templates.Sprite{Name: n}, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
			panic(err)
		}
	}
	return reg
}

// noiseImage is deterministic and has no repeating patches
func noiseImage(w, h int) *image.RGBA {
	rng := rand.New(rand.NewPCG(3, 5))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// testDevice is a device where every story sprite is on screen and
// "addtostory" disappears after one tap
func testDevice(sprites ...string) (*Device, *fakeController, *fakeLocator) {
	if len(sprites) == 0 {
		sprites = storySprites
	}
	controller := &fakeController{serial: "emulator-5554"}
	locator := newFakeLocator()
	locator.queue["addtostory"] = []bool{true, false}

	device := &Device{
		Serial:   controller.serial,
		Commands: controller,
		Screen:   controller,
		Locator:  locator,
		Gestures: gesture.NewDispatcher(controller).WithSeed(1).WithSleeper(noSleep),
		Sprites:  spriteRegistry(sprites...),
		Policy:   gesture.Centered,
	}
	return device, controller, locator
}

// fakeSource serves canned offers; urls in fail return an error
type fakeSource struct {
	offers  map[string]*offers.Offer
	fail    map[string]error
	scraped []string
}

func (s *fakeSource) Scrape(ctx context.Context, url string) (*offers.Offer, error) {
	s.scraped = append(s.scraped, url)
	if err := s.fail[url]; err != nil {
		return nil, err
	}
	if o, ok := s.offers[url]; ok {
		copied := *o
		return &copied, nil
	}
	return &offers.Offer{URL: url, Title: "Produto " + path.Base(url), Thumbnail: "/tmp/thumb.png", PriceNow: 10}, nil
}

type fakeComposer struct {
	dir   string
	names []string
	err   error
}

func (c *fakeComposer) ComposeOffer(offer *offers.Offer, name string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.names = append(c.names, name)
	return path.Join(c.dir, name), nil
}

type fakePublisher struct {
	stories []Story
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, story Story) error {
	if p.err != nil {
		return p.err
	}
	p.stories = append(p.stories, story)
	return nil
}

type fakeJournal struct {
	posts  []database.Post
	posted map[string]bool
	err    error
}

func (j *fakeJournal) RecordPost(p *database.Post) (int64, error) {
	if j.err != nil {
		return 0, j.err
	}
	j.posts = append(j.posts, *p)
	return int64(len(j.posts)), nil
}

func (j *fakeJournal) WasPosted(url string) (bool, error) {
	if j.err != nil {
		return false, j.err
	}
	return j.posted[url], nil
}
