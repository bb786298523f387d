package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/xxxsen/gamedeck/internal/db"
)

// SortsCommand prints the available sort orders with their indexes.
type SortsCommand struct {
	out io.Writer
}

func NewSortsCommand() *SortsCommand { return &SortsCommand{out: os.Stdout} }

func (c *SortsCommand) Name() string { return "sorts" }

func (c *SortsCommand) Desc() string {
	return "列出可用的排序方式"
}

func (c *SortsCommand) Init(f *pflag.FlagSet) {}

func (c *SortsCommand) PreRun(ctx context.Context, env *Env) error { return nil }

func (c *SortsCommand) Run(ctx context.Context) error {
	for i, s := range db.Sorts() {
		if _, err := fmt.Fprintf(c.out, "%2d  %s\n", i, s.Description); err != nil {
			return err
		}
	}
	return nil
}

func (c *SortsCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("sorts", func() IRunner { return NewSortsCommand() })
}
