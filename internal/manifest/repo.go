package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRepoURL is returned for anything that is not a GitHub
// repository URL.
var ErrInvalidRepoURL = errors.New("invalid repository URL")

// Repo identifies a repository and an optional ref.
type Repo struct {
	Owner string
	Name  string
	Ref   string // empty means the configured default
}

// String renders owner/repo[@ref].
func (r Repo) String() string {
	if r.Ref == "" {
		return r.Owner + "/" + r.Name
	}
	return r.Owner + "/" + r.Name + "@" + r.Ref
}

// ParseRepoURL accepts github.com/<owner>/<repo>, with or without scheme,
// "www.", a ".git" suffix, a trailing slash, or a /tree/<ref> suffix.
func ParseRepoURL(raw string) (Repo, error) {
	s := strings.TrimSpace(raw)
	for _, p := range []string{"https://", "http://"} {
		if strings.HasPrefix(strings.ToLower(s), p) {
			s = s[len(p):]
			break
		}
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")

	host, rest, ok := strings.Cut(s, "/")
	if !ok || !strings.EqualFold(host, "github.com") {
		return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("%w: %q needs owner and repository", ErrInvalidRepoURL, raw)
	}

	repo := Repo{Owner: parts[0], Name: strings.TrimSuffix(parts[1], ".git")}
	if repo.Name == "" {
		return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	switch {
	case len(parts) == 2:
	case len(parts) >= 4 && parts[2] == "tree":
		repo.Ref = strings.Join(parts[3:], "/")
	default:
		return Repo{}, fmt.Errorf("%w: %q has unexpected path", ErrInvalidRepoURL, raw)
	}
	return repo, nil
}
