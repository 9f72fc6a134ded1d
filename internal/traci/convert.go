package traci

import "github.com/seyedmohammadhosseini/veins/internal/coords"

// SetNetbounds fixes the peer's network boundaries. It may be called once.
func (c *Connection) SetNetbounds(lowerLeft, upperRight coords.PeerCoord, margin int) error {
	if err := c.transform.SetNetbounds(lowerLeft, upperRight, margin); err != nil {
		return err
	}
	c.logger.Debug().
		Float64("ll_x", lowerLeft.X).Float64("ll_y", lowerLeft.Y).
		Float64("ur_x", upperRight.X).Float64("ur_y", upperRight.Y).
		Int("margin", margin).
		Str("projection", string(c.transform.Kind())).
		Msg("traci net bounds set")
	return nil
}

func (c *Connection) Transform() *coords.Transform {
	return c.transform
}

func (c *Connection) ToLocal(p coords.PeerCoord) (coords.Coord, error) {
	return c.transform.ToLocal(p)
}

func (c *Connection) ToPeer(p coords.Coord) (coords.PeerCoord, error) {
	return c.transform.ToPeer(p)
}

func (c *Connection) ToLocalList(in []coords.PeerCoord) ([]coords.Coord, error) {
	return c.transform.ToLocalList(in)
}

func (c *Connection) ToPeerList(in []coords.Coord) ([]coords.PeerCoord, error) {
	return c.transform.ToPeerList(in)
}

func (c *Connection) ToLocalHeading(h coords.PeerHeading) coords.Heading {
	return c.opts.heading.ToLocal(h)
}

func (c *Connection) ToPeerHeading(h coords.Heading) coords.PeerHeading {
	return c.opts.heading.ToPeer(h)
}
