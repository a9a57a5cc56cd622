package kadmin

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jcmturner/gokrb5/v8/keytab"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudhut/kadminion/logging"
)

// CreateKeytabFile exports the principal's keys into the keytab file at path
// via `ktadd`. Without an admin identity the export goes through kadmin.local
// with -norandkey, so the principal's existing keys stay valid. It reports
// true iff kadmin exited zero. A blank principal is a silent no-op.
func (s *Service) CreateKeytabFile(ctx context.Context, principal, path string, admin *Identity) (bool, error) {
	if principal == "" {
		return false, nil
	}

	norandkey := ""
	if principalOf(admin) == "" {
		norandkey = "-norandkey"
	}

	keytabFlag := ""
	if path != "" {
		keytabFlag = "-k " + path
	}

	query := fmt.Sprintf("ktadd %s %s %s", keytabFlag, norandkey, principal)
	res, err := s.Invoke(ctx, query, admin, "")
	s.recordInvocation("ktadd", res.ExitCode, err)
	if err != nil {
		return false, NewError(KindInvocationFailed, "ktadd", principal,
			fmt.Sprintf("Failed to create keytab for principal: %s (in %s)", principal, path), err)
	}

	return res.ExitCode == 0, nil
}

// CreateKeytab exports the principal's keys into a temporary keytab file and
// returns the file's content base64 encoded, or "" when the export did not
// succeed. The temporary file is removed again in every outcome.
func (s *Service) CreateKeytab(ctx context.Context, principal string, admin *Identity) (string, error) {
	file, err := os.CreateTemp("", "kadminion-keytab-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary keytab file: %w", err)
	}
	tempPath := file.Name()
	_ = file.Close()
	// ktadd has to create the file itself
	_ = os.Remove(tempPath)
	defer func() { _ = os.Remove(tempPath) }()

	created, err := s.CreateKeytabFile(ctx, principal, tempPath, admin)
	if err != nil {
		return "", err
	}
	if !created {
		return "", nil
	}

	raw, err := os.ReadFile(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to read exported keytab for %s: %w", principal, err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// WriteKeytabFiles materializes base64 keytab content on disk and applies the
// requested ownership and access bits. Entries without content or without a
// path are skipped. Content that does not decode as base64 fails the call,
// content that decodes but does not parse as a keytab only logs a warning
// since the KDC stays the authority on what a valid keytab is.
func (s *Service) WriteKeytabFiles(specs []KeytabSpec) error {
	for _, spec := range specs {
		if spec.Content == "" || spec.Path == "" {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(spec.Content)
		if err != nil {
			return NewError(KindConfigInvalid, "write_keytab", "",
				fmt.Sprintf("keytab content for %s is not valid base64", spec.Path), err)
		}

		if dir := filepath.Dir(spec.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create keytab directory %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(spec.Path, raw, 0600); err != nil {
			return fmt.Errorf("failed to write keytab file %s: %w", spec.Path, err)
		}

		if err := keytab.New().Unmarshal(raw); err != nil {
			s.logger.Warn("written keytab content does not parse as a keytab",
				zap.String("path", spec.Path),
				zap.Error(err))
		}

		if err := setFileAccess(spec.Path, spec.Owner, spec.OwnerAccess, spec.Group, spec.GroupAccess); err != nil {
			return fmt.Errorf("failed to set access on keytab file %s: %w", spec.Path, err)
		}

		logging.LogResource(s.logger, zapcore.InfoLevel, logging.Resource{
			Kind: "File",
			Name: spec.Path,
			Args: []logging.Arg{
				logging.StringArg("owner", spec.Owner),
				logging.StringArg("group", spec.Group),
				logging.ModeArg("mode", accessMode(spec.OwnerAccess, spec.GroupAccess)),
			},
		})
	}

	return nil
}
