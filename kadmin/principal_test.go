package kadmin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreatePrincipal(t *testing.T) {
	tests := []struct {
		name          string
		identity      *Identity
		exitCode      int
		expectCreated bool
		expectedQuery string
	}{
		{
			name:          "with password",
			identity:      &Identity{Principal: "a@REALM", Password: "pw"},
			exitCode:      0,
			expectCreated: true,
			expectedQuery: `addprinc -pw "pw" a@REALM`,
		},
		{
			name:          "without password uses randkey",
			identity:      &Identity{Principal: "svc/host@EXAMPLE.COM"},
			exitCode:      0,
			expectCreated: true,
			expectedQuery: "addprinc -randkey svc/host@EXAMPLE.COM",
		},
		{
			name:          "nonzero exit reports not created",
			identity:      &Identity{Principal: "a@REALM", Password: "pw"},
			exitCode:      1,
			expectCreated: false,
			expectedQuery: `addprinc -pw "pw" a@REALM`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{
				respond: func(Command) (ExecResult, error) {
					return ExecResult{ExitCode: tt.exitCode}, nil
				},
			}
			svc := newTestService(runner)

			created, err := svc.CreatePrincipal(context.Background(), tt.identity, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expectCreated, created)

			require.Len(t, runner.calls, 1)
			assert.Equal(t, "kadmin.local", runner.calls[0].Path)
			assert.Equal(t, []string{"-q", tt.expectedQuery}, runner.calls[0].Args)
		})
	}
}

func TestService_CreatePrincipal_MissingPrincipalIsNoOp(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestService(runner)

	created, err := svc.CreatePrincipal(context.Background(), &Identity{Password: "pw"}, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, runner.calls)
}

func TestService_CreatePrincipal_RegistersPasswordForRedaction(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestService(runner)

	_, err := svc.CreatePrincipal(context.Background(), &Identity{Principal: "a@REALM", Password: "hunter2"}, nil)
	require.NoError(t, err)

	filtered := svc.redactor.Filter(`addprinc -pw "hunter2" a@REALM`)
	assert.Equal(t, `addprinc -pw "[PROTECTED]" a@REALM`, filtered)
}

func TestService_CreatePrincipal_WrapsExecutionError(t *testing.T) {
	runner := &fakeRunner{
		respond: func(Command) (ExecResult, error) {
			return ExecResult{}, errors.New("boom")
		},
	}
	svc := newTestService(runner)

	_, err := svc.CreatePrincipal(context.Background(), &Identity{Principal: "a@REALM"}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvocationFailed))
	assert.Contains(t, err.Error(), "Failed to create principal: a@REALM")
}

func TestService_PrincipalExists(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected bool
	}{
		{
			name:     "output contains the principal line",
			output:   "Principal: a@EXAMPLE.COM\nExpiration date: [never]\n",
			expected: true,
		},
		{
			name:     "output names a different principal",
			output:   "Principal: b@EXAMPLE.COM\n",
			expected: false,
		},
		{
			name:     "kadmin reports the principal as unknown",
			output:   "get_principal: Principal does not exist while retrieving \"a@EXAMPLE.COM\".",
			expected: false,
		},
		{
			name:     "empty output",
			output:   "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{
				respond: func(Command) (ExecResult, error) {
					return ExecResult{ExitCode: 0, Output: tt.output}, nil
				},
			}
			svc := newTestService(runner)

			exists, err := svc.PrincipalExists(context.Background(), &Identity{Principal: "a@EXAMPLE.COM"}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)

			require.Len(t, runner.calls, 1)
			assert.Equal(t, []string{"-q", "getprinc a@EXAMPLE.COM"}, runner.calls[0].Args)
		})
	}
}

func TestService_PrincipalExists_MissingPrincipalIsNoOp(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestService(runner)

	exists, err := svc.PrincipalExists(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, runner.calls)
}

func TestService_PrincipalExists_CachesResults(t *testing.T) {
	runner := &fakeRunner{
		respond: func(Command) (ExecResult, error) {
			return ExecResult{ExitCode: 0, Output: "Principal: a@EXAMPLE.COM"}, nil
		},
	}
	svc := newTestService(runner)
	identity := &Identity{Principal: "a@EXAMPLE.COM"}

	exists, err := svc.PrincipalExists(context.Background(), identity, nil)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = svc.PrincipalExists(context.Background(), identity, nil)
	require.NoError(t, err)
	require.True(t, exists)
	assert.Len(t, runner.calls, 1, "second lookup must be served from cache")
}

func TestService_CreatePrincipal_InvalidatesExistsCache(t *testing.T) {
	runner := &fakeRunner{
		respond: func(cmd Command) (ExecResult, error) {
			return ExecResult{ExitCode: 0, Output: "get_principal: Principal does not exist"}, nil
		},
	}
	svc := newTestService(runner)
	identity := &Identity{Principal: "a@EXAMPLE.COM"}

	exists, err := svc.PrincipalExists(context.Background(), identity, nil)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = svc.CreatePrincipal(context.Background(), identity, nil)
	require.NoError(t, err)

	runner.respond = func(Command) (ExecResult, error) {
		return ExecResult{ExitCode: 0, Output: "Principal: a@EXAMPLE.COM"}, nil
	}
	exists, err = svc.PrincipalExists(context.Background(), identity, nil)
	require.NoError(t, err)
	assert.True(t, exists, "creating the principal must drop the cached lookup")
}

func TestService_PrincipalExists_WrapsExecutionError(t *testing.T) {
	runner := &fakeRunner{
		respond: func(Command) (ExecResult, error) {
			return ExecResult{}, errors.New("boom")
		},
	}
	svc := newTestService(runner)

	_, err := svc.PrincipalExists(context.Background(), &Identity{Principal: "a@EXAMPLE.COM"}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvocationFailed))
	assert.Contains(t, err.Error(), "Failed to determine if principal exists: a@EXAMPLE.COM")
}

func TestService_RequirePrincipal(t *testing.T) {
	runner := &fakeRunner{
		respond: func(Command) (ExecResult, error) {
			return ExecResult{ExitCode: 0, Output: "get_principal: Principal does not exist"}, nil
		},
	}
	svc := newTestService(runner)

	err := svc.RequirePrincipal(context.Background(), &Identity{Principal: "a@EXAMPLE.COM"}, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestService_EnsureAdminIdentity(t *testing.T) {
	admin := &Identity{Principal: "admin/admin@EXAMPLE.COM", Password: "pw"}

	t.Run("creates the principal when it is missing", func(t *testing.T) {
		runner := &fakeRunner{
			respond: func(cmd Command) (ExecResult, error) {
				if cmd.Args[len(cmd.Args)-1] == "getprinc admin/admin@EXAMPLE.COM" {
					return ExecResult{ExitCode: 0, Output: "get_principal: Principal does not exist"}, nil
				}
				return ExecResult{ExitCode: 0}, nil
			},
		}
		svc := newTestService(runner)

		require.NoError(t, svc.EnsureAdminIdentity(context.Background(), admin))

		require.Len(t, runner.calls, 2)
		assert.Equal(t, []string{"-q", `addprinc -pw "pw" admin/admin@EXAMPLE.COM`}, runner.calls[1].Args)
	})

	t.Run("rotates the password when the principal exists", func(t *testing.T) {
		runner := &fakeRunner{
			respond: func(cmd Command) (ExecResult, error) {
				if cmd.Args[len(cmd.Args)-1] == "getprinc admin/admin@EXAMPLE.COM" {
					return ExecResult{ExitCode: 0, Output: "Principal: admin/admin@EXAMPLE.COM"}, nil
				}
				return ExecResult{ExitCode: 0}, nil
			},
		}
		svc := newTestService(runner)

		require.NoError(t, svc.EnsureAdminIdentity(context.Background(), admin))

		require.Len(t, runner.calls, 2)
		assert.Equal(t, []string{"-q", `change_password -pw "pw" admin/admin@EXAMPLE.COM`}, runner.calls[1].Args)
	})

	t.Run("nonzero exit is an error", func(t *testing.T) {
		runner := &fakeRunner{
			respond: func(cmd Command) (ExecResult, error) {
				if cmd.Args[len(cmd.Args)-1] == "getprinc admin/admin@EXAMPLE.COM" {
					return ExecResult{ExitCode: 0, Output: "get_principal: Principal does not exist"}, nil
				}
				return ExecResult{ExitCode: 1}, nil
			},
		}
		svc := newTestService(runner)

		err := svc.EnsureAdminIdentity(context.Background(), admin)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindInvocationFailed))
		assert.Contains(t, err.Error(), "Failed to ensure admin identity: admin/admin@EXAMPLE.COM")
	})

	t.Run("missing principal is a no-op", func(t *testing.T) {
		runner := &fakeRunner{}
		svc := newTestService(runner)

		require.NoError(t, svc.EnsureAdminIdentity(context.Background(), &Identity{}))
		assert.Empty(t, runner.calls)
	})
}

func TestService_ChangePrincipalPassword(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestService(runner)

	changed, err := svc.ChangePrincipalPassword(context.Background(), &Identity{Principal: "a@REALM", Password: "new-pw"}, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"-q", `change_password -pw "new-pw" a@REALM`}, runner.calls[0].Args)
}

func TestService_CreatePrincipals(t *testing.T) {
	t.Run("continues past a clean nonzero exit", func(t *testing.T) {
		exitCodes := []int{1, 0}
		runner := &fakeRunner{}
		runner.respond = func(Command) (ExecResult, error) {
			return ExecResult{ExitCode: exitCodes[len(runner.calls)-1]}, nil
		}
		svc := newTestService(runner)

		err := svc.CreatePrincipals(context.Background(), []Identity{
			{Principal: "a@REALM"},
			{Principal: "b@REALM"},
		}, nil)
		require.NoError(t, err)
		assert.Len(t, runner.calls, 2)
	})

	t.Run("stops at an execution error", func(t *testing.T) {
		runner := &fakeRunner{
			respond: func(Command) (ExecResult, error) {
				return ExecResult{}, errors.New("boom")
			},
		}
		svc := newTestService(runner)

		err := svc.CreatePrincipals(context.Background(), []Identity{
			{Principal: "a@REALM"},
			{Principal: "b@REALM"},
		}, nil)
		require.Error(t, err)
		assert.Len(t, runner.calls, 1)
	})
}
