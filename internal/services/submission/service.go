package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mcoot/judgeportal/internal/filex"
	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/services/catalog"
)

// sourceExt is the extension every stored submission gets
const sourceExt = ".cpp"

// Request is a source file submitted over the real-time channel
type Request struct {
	Username string `json:"username"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Catalog resolves the layout and problem names submissions are checked against
type Catalog interface {
	Layout(ctx context.Context) (catalog.Layout, error)
	FindTest(ctx context.Context, layout catalog.Layout, name string) (string, error)
}

// Service stores submissions in the users' workspaces
type Service struct {
	catalog Catalog
	logger  *slog.Logger
}

// New creates a new submission Service
func New(catalog Catalog, logger *slog.Logger) *Service {
	return &Service{
		catalog: catalog,
		logger:  logger.With(slog.String("component", "submission")),
	}
}

// Submit writes req.Content to <usersdir>/<username>/<problem>.cpp, where
// problem is the filename up to its first dot, spelled as submitted. The
// problem must match a catalog entry case-insensitively. An existing
// submission is always replaced. It returns the path written.
func (s *Service) Submit(ctx context.Context, viewer model.Viewer, req Request) (string, error) {
	if req.Username == "" || req.Filename == "" || req.Content == "" {
		return "", model.ErrInvalidSubmission
	}
	if !validUsername(req.Username) {
		return "", fmt.Errorf("%w: bad username %q", model.ErrInvalidSubmission, req.Username)
	}
	if !viewer.CanSubmitAs(req.Username) {
		s.logger.Warn("submission for another user rejected",
			slog.String("viewer", viewer.Username),
			slog.String("username", req.Username))
		return "", model.ErrForbiddenUser
	}

	layout, err := s.catalog.Layout(ctx)
	if err != nil {
		return "", err
	}

	problem := ProblemName(req.Filename)
	if _, err := s.catalog.FindTest(ctx, layout, problem); err != nil {
		if errors.Is(err, model.ErrProblemNotFound) {
			return "", model.ErrUnknownProblem
		}
		return "", err
	}

	workspace := layout.WorkspaceDir(req.Username)
	if err := filex.EnsureDir(workspace); err != nil {
		return "", err
	}

	path := filepath.Join(workspace, problem+sourceExt)
	if err := filex.WriteFileAtomic(path, []byte(req.Content)); err != nil {
		return "", err
	}

	s.logger.Info("submission stored",
		slog.String("username", req.Username),
		slog.String("problem", problem),
		slog.Int("bytes", len(req.Content)))

	return path, nil
}

// ProblemName returns filename up to its first dot
func ProblemName(filename string) string {
	if i := strings.IndexByte(filename, '.'); i >= 0 {
		return filename[:i]
	}
	return filename
}

func validUsername(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
