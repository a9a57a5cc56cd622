package kadmin

import (
	"context"
	"fmt"
	"strings"
)

// PrincipalExists reports whether the principal is known to the KDC by
// running `getprinc` and checking the output for the exact
// "Principal: <principal>" line. Results are cached briefly and concurrent
// queries for the same principal collapse into a single kadmin call. An
// identity without a principal is reported as not existing.
func (s *Service) PrincipalExists(ctx context.Context, identity *Identity, admin *Identity) (bool, error) {
	principal := principalOf(identity)
	if principal == "" {
		return false, nil
	}

	if s.cfg.ExistsCacheTTL > 0 {
		if cached, err := s.existsCache.Get(principal); err == nil {
			return cached.(bool), nil
		}
	}

	exists, err, _ := s.requestGroup.Do("getprinc-"+principal, func() (interface{}, error) {
		res, err := s.Invoke(ctx, "getprinc "+principal, admin, "")
		s.recordInvocation("getprinc", res.ExitCode, err)
		if err != nil {
			return false, NewError(KindInvocationFailed, "getprinc", principal,
				fmt.Sprintf("Failed to determine if principal exists: %s", principal), err)
		}

		exists := strings.Contains(res.Output, "Principal: "+principal)
		if s.cfg.ExistsCacheTTL > 0 {
			_ = s.existsCache.Set(principal, exists)
		}
		return exists, nil
	})
	if err != nil {
		return false, err
	}

	return exists.(bool), nil
}

// RequirePrincipal is PrincipalExists hardened into a requirement: a missing
// principal comes back as a typed not found error instead of a false.
func (s *Service) RequirePrincipal(ctx context.Context, identity *Identity, admin *Identity) error {
	exists, err := s.PrincipalExists(ctx, identity, admin)
	if err != nil {
		return err
	}
	if !exists {
		principal := principalOf(identity)
		return NewError(KindNotFound, "getprinc", principal,
			fmt.Sprintf("principal does not exist: %s", principal), nil)
	}
	return nil
}

// CreatePrincipal registers the identity's principal with the KDC, with the
// identity's password or with a random key when no password is set. It
// reports true iff kadmin exited zero. An identity without a principal is a
// silent no-op.
func (s *Service) CreatePrincipal(ctx context.Context, identity *Identity, admin *Identity) (bool, error) {
	principal := principalOf(identity)
	if principal == "" {
		return false, nil
	}

	query := fmt.Sprintf("addprinc %s %s", s.credentialsClause(identity), principal)
	res, err := s.Invoke(ctx, query, admin, "")
	s.recordInvocation("addprinc", res.ExitCode, err)
	if err != nil {
		return false, NewError(KindInvocationFailed, "addprinc", principal,
			fmt.Sprintf("Failed to create principal: %s", principal), err)
	}

	_ = s.existsCache.Remove(principal)
	return res.ExitCode == 0, nil
}

// CreatePrincipals creates all given identities in order. A clean kadmin
// failure (nonzero exit) does not stop the batch, an execution error does.
func (s *Service) CreatePrincipals(ctx context.Context, identities []Identity, admin *Identity) error {
	for i := range identities {
		if _, err := s.CreatePrincipal(ctx, &identities[i], admin); err != nil {
			return err
		}
	}
	return nil
}

// ChangePrincipalPassword sets the identity's password, or rotates the key
// randomly when no password is given. It reports true iff kadmin exited zero.
func (s *Service) ChangePrincipalPassword(ctx context.Context, identity *Identity, admin *Identity) (bool, error) {
	principal := principalOf(identity)
	if principal == "" {
		return false, nil
	}

	query := fmt.Sprintf("change_password %s %s", s.credentialsClause(identity), principal)
	res, err := s.Invoke(ctx, query, admin, "")
	s.recordInvocation("change_password", res.ExitCode, err)
	if err != nil {
		return false, NewError(KindInvocationFailed, "change_password", principal,
			fmt.Sprintf("Failed to change password for principal: %s", principal), err)
	}

	return res.ExitCode == 0, nil
}

// EnsureAdminIdentity upserts the realm's administrative identity through the
// KDC host's local authority (kadmin.local): the password is rotated when the
// principal already exists and the principal is created otherwise. Everything
// downstream authenticates as this identity, so a nonzero exit is an error
// here rather than a false.
func (s *Service) EnsureAdminIdentity(ctx context.Context, identity *Identity) error {
	principal := principalOf(identity)
	if principal == "" {
		return nil
	}

	exists, err := s.PrincipalExists(ctx, identity, nil)
	if err != nil {
		return err
	}

	op := "addprinc"
	var ok bool
	if exists {
		op = "change_password"
		ok, err = s.ChangePrincipalPassword(ctx, identity, nil)
	} else {
		ok, err = s.CreatePrincipal(ctx, identity, nil)
	}
	if err != nil {
		return err
	}
	if !ok {
		return NewError(KindInvocationFailed, op, principal,
			fmt.Sprintf("Failed to ensure admin identity: %s", principal), nil)
	}
	return nil
}

// credentialsClause renders the identity's credential for addprinc and
// change_password queries and makes sure the password can never surface in a
// log line.
func (s *Service) credentialsClause(identity *Identity) string {
	if identity.Password == "" {
		return "-randkey"
	}
	s.redactor.Register(identity.Password, redactedPlaceholder)
	return fmt.Sprintf("-pw \"%s\"", identity.Password)
}
