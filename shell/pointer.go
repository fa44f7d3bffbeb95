package shell

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/juruen/rmdigit/stroke"
)

func parseCoords(args []string) ([][2]float64, error) {
	if len(args)%2 != 0 {
		return nil, errors.New("coordinates come in x y pairs")
	}
	coords := make([][2]float64, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		x, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x %q", args[i])
		}
		y, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y %q", args[i+1])
		}
		coords = append(coords, [2]float64{x, y})
	}
	return coords, nil
}

// pointer dispatches one event of kind per coordinate pair. Up and leave
// take no coordinates.
func (ctx *ShellCtxt) pointer(kind stroke.Kind, args []string) error {
	coords, err := parseCoords(args)
	if err != nil {
		return err
	}

	switch kind {
	case stroke.Down:
		if len(coords) != 1 {
			return errors.New("usage: down x y")
		}
	case stroke.Move:
		if len(coords) == 0 {
			return errors.New("usage: move x y [x y ...]")
		}
	default:
		if len(coords) != 0 {
			return fmt.Errorf("usage: %s", kind)
		}
		ctx.dispatch(stroke.Event{Kind: kind})
		return nil
	}

	for _, c := range coords {
		ctx.dispatch(stroke.Event{Kind: kind, ClientX: c[0], ClientY: c[1]})
	}
	return nil
}

func pointerCmd(ctx *ShellCtxt, kind stroke.Kind, help string) *ishell.Cmd {
	return &ishell.Cmd{
		Name: kind.String(),
		Help: help,
		Func: func(c *ishell.Context) {
			if err := ctx.pointer(kind, c.Args); err != nil {
				c.Err(err)
				return
			}
			c.SetPrompt(ctx.prompt())
		},
	}
}

func downCmd(ctx *ShellCtxt) *ishell.Cmd {
	return pointerCmd(ctx, stroke.Down, "press the pointer at x y")
}

func moveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return pointerCmd(ctx, stroke.Move, "move the pointer through one or more x y points")
}

func upCmd(ctx *ShellCtxt) *ishell.Cmd {
	return pointerCmd(ctx, stroke.Up, "release the pointer and classify the drawing")
}

func leaveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return pointerCmd(ctx, stroke.Leave, "move the pointer off the surface")
}

func originCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "origin",
		Help: "place the surface at client position x y",
		Func: func(c *ishell.Context) {
			coords, err := parseCoords(c.Args)
			if err != nil || len(coords) != 1 {
				c.Err(errors.New("usage: origin x y"))
				return
			}
			ctx.Session.MoveSurface(coords[0][0], coords[0][1])
		},
	}
}
