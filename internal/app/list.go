package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/model"
	"github.com/xxxsen/gamedeck/internal/system"
	"go.uber.org/zap"
)

// ListCommand prints the children of a folder as JSON.
type ListCommand struct {
	systemName string
	path       string
	recursive  bool
	folders    bool
	sortIndex  int

	env   *Env
	sys   *system.Definition
	dirID string
	out   io.Writer
}

func NewListCommand() *ListCommand { return &ListCommand{out: os.Stdout} }

func (c *ListCommand) Name() string { return "list" }

func (c *ListCommand) Desc() string {
	return "列出目录下的游戏与子目录"
}

func (c *ListCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.systemName, "system", "", "系统名称")
	f.StringVar(&c.path, "path", ".", "目录标识或绝对路径")
	f.BoolVar(&c.recursive, "recursive", false, "递归列出所有子目录内容")
	f.BoolVar(&c.folders, "folders", true, "结果中包含目录")
	f.IntVar(&c.sortIndex, "sort", 0, "排序方式序号, 参见 sorts 命令")
}

func (c *ListCommand) PreRun(ctx context.Context, env *Env) error {
	c.systemName = strings.TrimSpace(c.systemName)
	if c.systemName == "" {
		return errors.New("list requires --system")
	}
	sys, err := env.Definition(ctx, c.systemName)
	if err != nil {
		return err
	}
	dirID, err := resolveFileID(sys, c.path)
	if err != nil {
		return err
	}
	c.env = env
	c.sys = sys
	c.dirID = dirID
	logutil.GetLogger(ctx).Debug("starting list",
		zap.String("system", c.systemName),
		zap.String("dir", dirID),
		zap.Bool("recursive", c.recursive),
		zap.Int("sort", c.sortIndex),
	)
	return nil
}

func (c *ListCommand) Run(ctx context.Context) error {
	spec := db.SortAt(c.sortIndex)
	nodes, err := c.env.Store.ChildrenOf(ctx, c.sys, c.dirID, db.ChildrenOptions{
		Recursive:      c.recursive,
		IncludeFolders: c.folders,
		Sort:           &spec,
	})
	if err != nil {
		return err
	}
	resp := model.ChildrenResponse{
		System: c.sys.Name(),
		Path:   c.dirID,
		Sort:   spec.Description,
		Files:  toFileModels(ctx, nodes),
	}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal list result: %w", err)
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

func (c *ListCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("list", func() IRunner { return NewListCommand() })
}
