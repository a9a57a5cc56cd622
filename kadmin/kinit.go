package kadmin

import (
	"context"
	"fmt"
	"os"
)

// TestKinit verifies that the identity can actually obtain a ticket. The
// credential forms are tried in order: an existing keytab file, base64 keytab
// content staged to a temporary file (removed again afterwards), then the
// password fed to kinit over stdin. Every successful kinit is followed by a
// kdestroy so no ticket survives the check. An identity without a principal
// or without any credential form is a silent no-op.
func (s *Service) TestKinit(ctx context.Context, identity *Identity) error {
	principal := principalOf(identity)
	if principal == "" {
		return nil
	}

	if identity.KeytabFile != "" {
		if _, err := os.Stat(identity.KeytabFile); err == nil {
			return s.kinitWithKeytab(ctx, principal, identity.KeytabFile)
		}
	}

	if identity.Keytab != "" {
		keytabFile, remove, err := s.stageKeytab(identity.Keytab, principal)
		if err != nil {
			return err
		}
		defer remove()
		return s.kinitWithKeytab(ctx, principal, keytabFile)
	}

	if identity.Password != "" {
		return s.kinitWithPassword(ctx, principal, identity.Password)
	}

	return nil
}

func (s *Service) kinitWithKeytab(ctx context.Context, principal, keytabFile string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.runner.Run(ctx, Command{
		Path: s.cfg.KinitPath,
		Args: []string{"-k", "-t", keytabFile, principal},
	})
	s.recordInvocation("kinit", res.ExitCode, err)
	if err != nil {
		return NewError(KindInvocationFailed, "kinit", principal,
			fmt.Sprintf("failed to execute kinit for %s", principal), err)
	}
	if res.ExitCode != 0 {
		return NewError(KindInvocationFailed, "kinit", principal,
			s.redactor.Filter(fmt.Sprintf("Execution of kinit returned %d. %s", res.ExitCode, res.Output)), nil)
	}

	return s.kdestroy(ctx, principal)
}

func (s *Service) kinitWithPassword(ctx context.Context, principal, password string) error {
	s.redactor.Register(password, redactedPlaceholder)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.runner.Run(ctx, Command{
		Path:  s.cfg.KinitPath,
		Args:  []string{principal},
		Stdin: password,
	})
	s.recordInvocation("kinit", res.ExitCode, err)
	if err != nil {
		return NewError(KindInvocationFailed, "kinit", principal,
			fmt.Sprintf("failed to execute kinit for %s", principal), err)
	}
	if res.ExitCode != 0 {
		return NewError(KindInvocationFailed, "kinit", principal,
			s.redactor.Filter(fmt.Sprintf("Execution of kinit returned %d. %s", res.ExitCode, res.Output)), nil)
	}

	return s.kdestroy(ctx, principal)
}

func (s *Service) kdestroy(ctx context.Context, principal string) error {
	res, err := s.runner.Run(ctx, Command{Path: s.cfg.KdestroyPath})
	s.recordInvocation("kdestroy", res.ExitCode, err)
	if err != nil {
		return NewError(KindInvocationFailed, "kdestroy", principal, "failed to execute kdestroy", err)
	}
	if res.ExitCode != 0 {
		return NewError(KindInvocationFailed, "kdestroy", principal,
			fmt.Sprintf("kdestroy returned %d. %s", res.ExitCode, res.Output), nil)
	}
	return nil
}
