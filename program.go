package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jcorbin/goconcat/internal/check"
	"github.com/jcorbin/goconcat/internal/natives"
	"github.com/jcorbin/goconcat/internal/parse"
)

// source is one named program text.
type source struct {
	name string
	io.Reader
}

func stringSource(name, text string) source { return source{name, bytes.NewReader([]byte(text))} }

func fileSource(name string) (source, io.Closer, error) {
	f, err := os.Open(name)
	if err != nil {
		return source{}, nil, fmt.Errorf("unable to open source: %w", err)
	}
	return source{name, f}, f, nil
}

// compiler parses and checks sources into one program.
type compiler struct {
	noPrelude bool
	warnf     func(mess string, args ...interface{})
	debugf    func(mess string, args ...interface{})
}

func (cc compiler) compile(srcs ...source) (*check.Result, error) {
	opts := []check.Option{check.WithNatives(natives.All()...)}
	if cc.warnf != nil {
		opts = append(opts, check.WithLogf(cc.warnf))
	}
	if cc.debugf != nil {
		opts = append(opts, check.WithDebugf(cc.debugf))
	}
	c := check.New(opts...)

	if !cc.noPrelude {
		r, err := prelude.Reader()
		if err != nil {
			return nil, err
		}
		srcs = append([]source{{prelude.Name(), r}}, srcs...)
	}
	for _, src := range srcs {
		prog, err := parse.Parse(src.name, src)
		if err != nil {
			return nil, err
		}
		if err := c.Load(prog); err != nil {
			return nil, err
		}
	}
	return c.Finish()
}
