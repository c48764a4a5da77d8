package finder

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakePage is a scripted Page. Region snapshots are served in order and the
// last one repeats.
type fakePage struct {
	mu sync.Mutex

	calls   []string
	regions []Regions
	reads   int

	regionErr     error
	failOn        map[string]error
	dump          PageDump
	dumpErr       error
	screenshot    []byte
	screenshotErr error
	panicOnShot   bool
}

func (p *fakePage) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if err, ok := p.failOn[call]; ok {
		return err
	}
	return nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	return p.record("navigate " + url)
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	return p.record("click " + selector)
}

func (p *fakePage) Fill(_ context.Context, selector, value string) error {
	return p.record(fmt.Sprintf("fill %s=%s", selector, value))
}

func (p *fakePage) SelectOption(_ context.Context, selector, value string) error {
	return p.record(fmt.Sprintf("select %s=%s", selector, value))
}

func (p *fakePage) Eval(_ context.Context, js string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch js {
	case regionsScript:
		if p.regionErr != nil {
			return p.regionErr
		}
		if len(p.regions) == 0 {
			return errors.New("no regions scripted")
		}
		i := p.reads
		if i >= len(p.regions) {
			i = len(p.regions) - 1
		}
		p.reads++
		*out.(*Regions) = p.regions[i]
		return nil
	case dumpScript:
		if p.dumpErr != nil {
			return p.dumpErr
		}
		*out.(*PageDump) = p.dump
		return nil
	}
	return fmt.Errorf("unexpected script %q", js)
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	if p.panicOnShot {
		panic("renderer crashed")
	}
	return p.screenshot, p.screenshotErr
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}
