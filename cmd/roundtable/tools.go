package main

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/roundtable/tool"
)

type clockArgs struct {
	Location string `json:"location,omitempty" jsonschema:"description=IANA time zone name (default UTC)"`
}

// builtinTools are the tools a conference file may reference by name.
func builtinTools() []tool.Tool {
	return []tool.Tool{
		tool.NewStringTool("echo", "Returns its input unchanged.", "text",
			func(_ context.Context, s string) (any, error) { return s, nil }),
		tool.NewStringTool("upper", "Converts text to upper case.", "text",
			func(_ context.Context, s string) (any, error) { return strings.ToUpper(s), nil }),
		tool.MustTypedTool("clock", "Returns the current time in RFC 3339 format.",
			func(_ context.Context, args clockArgs) (any, error) {
				loc := time.UTC
				if args.Location != "" {
					l, err := time.LoadLocation(args.Location)
					if err != nil {
						return "", err
					}
					loc = l
				}
				return time.Now().In(loc).Format(time.RFC3339), nil
			}),
	}
}
