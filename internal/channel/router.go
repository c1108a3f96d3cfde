package channel

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"adrescue/internal/services"
)

// Binding ties a project tag to the credential handle used for uploads.
type Binding struct {
	ProjectTag       string
	CredentialHandle string
}

// Router resolves project tags to upload bindings. Bindings are loaded once
// at construction and never change during a run.
type Router struct {
	bindings map[string]Binding
}

// NewRouter builds a router from the configured tag to credential-handle map.
func NewRouter(handles map[string]string) (*Router, error) {
	if len(handles) == 0 {
		return nil, errors.New("at least one channel binding required")
	}
	bindings := make(map[string]Binding, len(handles))
	for tag, handle := range handles {
		tag = strings.TrimSpace(tag)
		handle = strings.TrimSpace(handle)
		if tag == "" {
			return nil, errors.New("channel binding with empty project tag")
		}
		if handle == "" {
			return nil, fmt.Errorf("channel binding for %q has empty credential handle", tag)
		}
		bindings[tag] = Binding{ProjectTag: tag, CredentialHandle: handle}
	}
	return &Router{bindings: bindings}, nil
}

// Route returns the binding for a project tag. Unrecognized tags yield
// services.ErrUnknownProject so callers can classify the outcome.
func (r *Router) Route(projectTag string) (Binding, error) {
	binding, ok := r.bindings[strings.TrimSpace(projectTag)]
	if !ok {
		return Binding{}, fmt.Errorf("%w: %q", services.ErrUnknownProject, projectTag)
	}
	return binding, nil
}

// Tags returns the configured project tags in sorted order.
func (r *Router) Tags() []string {
	tags := make([]string, 0, len(r.bindings))
	for tag := range r.bindings {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
