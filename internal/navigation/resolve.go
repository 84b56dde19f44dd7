package navigation

import (
	"strings"

	"github.com/nao1215/remi/internal/model"
	"github.com/nao1215/remi/internal/protocol"
)

const (
	schemeSeparator = "://"
	documentSuffix  = ".gmi"
)

// Resolve computes the location reached by following target from current.
// It is a pure function of its inputs.
func Resolve(current model.Location, target string) (model.Location, error) {
	if strings.Contains(target, schemeSeparator) {
		loc, err := model.ParseLocation(target)
		if err != nil {
			return model.Location{}, &ResolveError{Target: target, Err: err}
		}
		return loc, nil
	}
	if current.IsZero() {
		return model.Location{}, &ResolveError{Target: target, Err: ErrNoBase}
	}

	var request string
	switch {
	case strings.HasPrefix(target, "/"):
		request = protocol.SchemePrefix + current.HostAndPort() + target
	case strings.HasSuffix(target, documentSuffix):
		base := baseRequest(current)
		if strings.HasSuffix(base, documentSuffix) {
			base = base[:strings.LastIndexByte(base, '/')+1]
		}
		request = base + target
	default:
		base := baseRequest(current)
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		request = base + target
	}
	return model.ParseLocation(request)
}

// baseRequest returns the current request, with a "/" appended when it has
// no path.
func baseRequest(current model.Location) string {
	if !current.HasPath() {
		return current.Request() + "/"
	}
	return current.Request()
}
