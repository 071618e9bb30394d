package drawer

import "sync"

// Controller is the cart drawer's open flag. Subscribers hear about every
// change, not about redundant opens or closes.
type Controller struct {
	mu     sync.Mutex
	open   bool
	subs   map[int]func(bool)
	nextID int
}

func New() *Controller {
	return &Controller{subs: make(map[int]func(bool))}
}

func (c *Controller) Open()  { c.set(true) }
func (c *Controller) Close() { c.set(false) }

func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Subscribe registers fn and returns a function that removes it.
func (c *Controller) Subscribe(fn func(bool)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) set(open bool) {
	c.mu.Lock()
	if c.open == open {
		c.mu.Unlock()
		return
	}
	c.open = open
	fns := make([]func(bool), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(open)
	}
}
