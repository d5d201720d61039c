package main

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recap-cli/internal/site"
)

// parseVideoArg accepts a bare video id or a watch, short, or youtu.be URL.
func parseVideoArg(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	id := arg
	if strings.Contains(arg, "/") {
		u, err := url.Parse(arg)
		if err != nil {
			return "", eris.Wrapf(err, "parse video url %q", arg)
		}
		switch {
		case u.Query().Get("v") != "":
			id = u.Query().Get("v")
		case strings.HasSuffix(u.Host, "youtu.be"):
			id = strings.Trim(u.Path, "/")
		case strings.HasPrefix(u.Path, "/shorts/") || strings.HasPrefix(u.Path, "/live/"):
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			id = parts[len(parts)-1]
		default:
			id = ""
		}
	}
	if !site.ValidVideoID(id) {
		return "", eris.Errorf("invalid video id %q", arg)
	}
	return id, nil
}
