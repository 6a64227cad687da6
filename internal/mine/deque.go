package mine

// grantDeque is a digger's private license pool. Free licenses go to the
// front (most-recently-granted first) so cheap capacity drains quickly;
// paid licenses go to the back and are consumed oldest-first.
type grantDeque struct {
	items []Grant
}

func (d *grantDeque) PushFront(g Grant) {
	d.items = append(d.items, Grant{})
	copy(d.items[1:], d.items)
	d.items[0] = g
}

func (d *grantDeque) PushBack(g Grant) {
	d.items = append(d.items, g)
}

func (d *grantDeque) PopFront() (Grant, bool) {
	if len(d.items) == 0 {
		return Grant{}, false
	}
	g := d.items[0]
	d.items = d.items[1:]
	return g, true
}

func (d *grantDeque) Len() int { return len(d.items) }
