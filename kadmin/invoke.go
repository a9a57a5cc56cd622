package kadmin

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// redactedPlaceholder is what registered secrets are replaced with in log
// lines and error messages.
const redactedPlaceholder = "[PROTECTED]"

// InvokeResult carries the outcome of one kadmin invocation. Invoked is false
// when the query was blank and no subprocess ran.
type InvokeResult struct {
	ExitCode int
	Output   string
	Invoked  bool
}

// Invoke executes a single kadmin query. Without an admin principal the query
// goes through kadmin.local, otherwise through kadmin authenticated with the
// admin identity's password or keytab. A keytab supplied as base64 content is
// staged to a temporary file that is removed again on every path. A blank
// query is a silent no-op.
//
// A nonzero exit code is not an error at this level, it is reported through
// the result. An error is returned when the subprocess could not run at all.
func (s *Service) Invoke(ctx context.Context, query string, admin *Identity, defaultRealm string) (InvokeResult, error) {
	if query == "" {
		return InvokeResult{}, nil
	}

	cmd, loggable, cleanup, err := s.buildKadminCommand(query, admin, defaultRealm)
	if err != nil {
		return InvokeResult{}, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	s.logger.Debug("invoking kadmin", zap.String("cmdline", loggable))
	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		return InvokeResult{}, NewError(KindInvocationFailed, "kadmin", principalOf(admin),
			fmt.Sprintf("failed to execute %s", s.redactor.Filter(loggable)), err)
	}

	return InvokeResult{ExitCode: res.ExitCode, Output: res.Output, Invoked: true}, nil
}

// buildKadminCommand assembles both the argv actually executed and the
// human-readable command line used for logging. The loggable line follows the
// classic `kadmin -p "<principal>" <credential> <realm> -q "<query>"` shape;
// it still has to pass the redactor before it may be emitted.
func (s *Service) buildKadminCommand(query string, admin *Identity, defaultRealm string) (Command, string, func(), error) {
	cleanup := func() {}

	var cmd Command
	var kadminPart, credentialPart string

	if principalOf(admin) == "" {
		cmd.Path = s.cfg.KadminLocalPath
		kadminPart = s.cfg.KadminLocalPath
	} else {
		cmd.Path = s.cfg.KadminPath
		cmd.Args = append(cmd.Args, "-p", admin.Principal)
		kadminPart = fmt.Sprintf("%s -p \"%s\"", s.cfg.KadminPath, admin.Principal)

		switch {
		case admin.Password != "":
			s.redactor.Register(admin.Password, redactedPlaceholder)
			cmd.Args = append(cmd.Args, "-w", admin.Password)
			credentialPart = fmt.Sprintf("-w \"%s\"", admin.Password)
		case admin.Keytab != "":
			keytabFile, remove, err := s.stageKeytab(admin.Keytab, admin.Principal)
			if err != nil {
				return Command{}, "", cleanup, err
			}
			cleanup = remove
			cmd.Args = append(cmd.Args, "-k", "-t", keytabFile)
			credentialPart = fmt.Sprintf("-k -t %s", keytabFile)
		case admin.KeytabFile != "":
			cmd.Args = append(cmd.Args, "-k", "-t", admin.KeytabFile)
			credentialPart = fmt.Sprintf("-k -t %s", admin.KeytabFile)
		default:
			return Command{}, "", cleanup, NewError(KindConfigInvalid, "kadmin", admin.Principal,
				fmt.Sprintf("admin identity %s carries no password and no keytab", admin.Principal), nil)
		}
	}

	realmPart := ""
	if defaultRealm != "" {
		cmd.Args = append(cmd.Args, "-r", defaultRealm)
		realmPart = " -r " + defaultRealm
	}

	cmd.Args = append(cmd.Args, "-q", query)

	loggable := fmt.Sprintf("%s %s%s -q \"%s\"", kadminPart, credentialPart, realmPart, escapeQuery(query))
	return cmd, loggable, cleanup, nil
}

// stageKeytab decodes base64 keytab content into a temporary file and returns
// its path together with the func that removes it again.
func (s *Service) stageKeytab(content, principal string) (string, func(), error) {
	noop := func() {}

	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", noop, NewError(KindConfigInvalid, "kadmin", principal,
			fmt.Sprintf("keytab content for %s is not valid base64", principal), err)
	}

	file, err := os.CreateTemp("", "kadminion-keytab-")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temporary keytab file: %w", err)
	}
	path := file.Name()

	if _, err := file.Write(raw); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", noop, fmt.Errorf("failed to write temporary keytab file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", noop, fmt.Errorf("failed to write temporary keytab file: %w", err)
	}

	return path, func() { _ = os.Remove(path) }, nil
}

func escapeQuery(query string) string {
	return strings.ReplaceAll(query, `"`, `\"`)
}

func principalOf(identity *Identity) string {
	if identity == nil {
		return ""
	}
	return identity.Principal
}
