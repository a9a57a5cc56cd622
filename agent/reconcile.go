package agent

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudhut/kadminion/audit"
	"github.com/cloudhut/kadminion/kadmin"
	"github.com/cloudhut/kadminion/krbconf"
	"github.com/cloudhut/kadminion/logging"
)

const (
	phaseAdminIdentity = "admin_identity"
	phasePrincipals    = "principals"
	phaseKeytabs       = "keytabs"
	phaseKeytabExport  = "keytab_export"
	phaseKrbConf       = "krb5_conf"
	phaseKinitChecks   = "kinit_checks"
)

// reconcile drives the host towards the configured Kerberos state. Phases run
// sequentially and the first phase error aborts the run, since later phases
// depend on the earlier ones (keytabs need principals, kinit needs keytabs).
func (s *Service) reconcile(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("starting reconcile",
		zap.String("realm", s.cfg.Realm.Name),
		zap.Int("managed_identities", len(s.cfg.Identities)))

	err := s.runPhases(ctx)

	duration := time.Since(start)
	s.state.lastRunUnix.Store(time.Now().Unix())
	s.state.lastDuration.Store(duration.Seconds())

	if err != nil {
		s.state.setReadyState(false)
		s.recordReconcile("error")
		return err
	}

	s.state.setReadyState(true)
	s.state.lastSuccessUnix.Store(time.Now().Unix())
	s.recordReconcile("success")
	s.logger.Info("reconcile complete", zap.Duration("duration", duration))

	return nil
}

func (s *Service) runPhases(ctx context.Context) error {
	if err := s.ensureAdminIdentity(ctx); err != nil {
		return errors.Wrap(err, "failed to ensure the admin identity")
	}
	if err := s.ensurePrincipals(ctx); err != nil {
		return errors.Wrap(err, "failed to ensure principals")
	}
	if err := s.writeKeytabs(ctx); err != nil {
		return errors.Wrap(err, "failed to write keytabs")
	}
	if err := s.exportKeytabs(ctx); err != nil {
		return errors.Wrap(err, "failed to export keytabs")
	}
	if err := s.writeKrbConf(ctx); err != nil {
		return errors.Wrap(err, "failed to write krb5.conf")
	}
	if err := s.runKinitChecks(ctx); err != nil {
		return errors.Wrap(err, "failed to verify identities via kinit")
	}
	return nil
}

// ensureAdminIdentity upserts the realm admin. Without a configured admin
// principal the agent manages everything through the KDC host's local
// authority and there is nothing to ensure.
func (s *Service) ensureAdminIdentity(ctx context.Context) error {
	admin := s.cfg.Realm.Admin
	if admin.Principal == "" {
		s.state.setPhaseResult(phaseAdminIdentity, true)
		return nil
	}

	err := s.kadminSvc.EnsureAdminIdentity(ctx, &admin)
	s.state.setPhaseResult(phaseAdminIdentity, err == nil)
	s.emitAudit(ctx, "ensure_admin_identity", admin.Principal, err)
	return err
}

func (s *Service) ensurePrincipals(ctx context.Context) error {
	admin := s.adminIdentity()
	for i := range s.cfg.Identities {
		identity := s.cfg.Identities[i].Identity
		err := s.ensurePrincipal(ctx, &identity, admin)
		s.emitAudit(ctx, "ensure_principal", identity.Principal, err)
		if err != nil {
			s.state.setPhaseResult(phasePrincipals, false)
			return err
		}
	}

	s.state.managedPrincipals.Store(int64(len(s.cfg.Identities)))
	s.state.setPhaseResult(phasePrincipals, true)
	return nil
}

// ensurePrincipal creates the principal and falls back to an existence check
// when the KDC rejects the addprinc, the usual cause being that the principal
// is already there.
func (s *Service) ensurePrincipal(ctx context.Context, identity *kadmin.Identity, admin *kadmin.Identity) error {
	created, err := s.kadminSvc.CreatePrincipal(ctx, identity, admin)
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("created principal", zap.String("principal", identity.Principal))
		return nil
	}

	return s.kadminSvc.RequirePrincipal(ctx, identity, admin)
}

func (s *Service) writeKeytabs(ctx context.Context) error {
	// The count restarts every run, the export phase adds its keytabs on top.
	s.state.writtenKeytabs.Store(0)

	written := int64(0)
	for i := range s.cfg.Keytabs {
		if s.cfg.Keytabs[i].Content != "" && s.cfg.Keytabs[i].Path != "" {
			written++
		}
	}
	if written == 0 {
		s.state.setPhaseResult(phaseKeytabs, true)
		return nil
	}

	err := s.kadminSvc.WriteKeytabFiles(s.cfg.Keytabs)
	s.state.setPhaseResult(phaseKeytabs, err == nil)
	s.emitAudit(ctx, "write_keytabs", "", err)
	if err != nil {
		return err
	}

	s.state.writtenKeytabs.Store(written)
	return nil
}

// exportKeytabs extracts a fresh keytab for every managed identity and drops
// it into the export directory. Without an admin identity ktadd runs with
// -norandkey, so exporting does not invalidate existing service credentials.
func (s *Service) exportKeytabs(ctx context.Context) error {
	if s.cfg.KeytabExportDir == "" {
		s.state.setPhaseResult(phaseKeytabExport, true)
		return nil
	}

	admin := s.adminIdentity()
	exported := int64(0)
	for i := range s.cfg.Identities {
		principal := s.cfg.Identities[i].Identity.Principal

		content, err := s.kadminSvc.CreateKeytab(ctx, principal, admin)
		if err == nil && content == "" {
			s.logger.Warn("keytab extraction produced no content", zap.String("principal", principal))
			s.emitAudit(ctx, "export_keytab", principal, nil)
			continue
		}
		if err == nil {
			path := filepath.Join(s.cfg.KeytabExportDir, keytabFileName(principal))
			err = s.kadminSvc.WriteKeytabFiles([]kadmin.KeytabSpec{{Content: content, Path: path}})
		}

		s.emitAudit(ctx, "export_keytab", principal, err)
		if err != nil {
			s.state.setPhaseResult(phaseKeytabExport, false)
			return err
		}
		exported++
	}

	s.state.writtenKeytabs.Add(exported)
	s.state.setPhaseResult(phaseKeytabExport, true)
	return nil
}

func (s *Service) writeKrbConf(ctx context.Context) error {
	if !s.cfg.KrbConf.Enabled {
		s.state.setPhaseResult(phaseKrbConf, true)
		return nil
	}

	sections := s.krbConfSections()
	content, err := s.renderKrbConf(sections)
	if err == nil {
		err = krbconf.WriteFile(s.cfg.KrbConf.Path, content, s.cfg.KrbConf.Owner, s.cfg.KrbConf.Group)
	}

	s.state.setPhaseResult(phaseKrbConf, err == nil)
	s.emitAudit(ctx, "write_krb5_conf", "", err)
	if err != nil {
		return err
	}

	logging.LogResource(s.logger, zapcore.InfoLevel, logging.Resource{
		Kind: "File",
		Name: s.cfg.KrbConf.Path,
		Args: []logging.Arg{
			logging.StringArg("owner", s.cfg.KrbConf.Owner),
			logging.StringArg("group", s.cfg.KrbConf.Group),
			logging.ModeArg("mode", 0644),
		},
	})
	return nil
}

func (s *Service) renderKrbConf(sections []krbconf.Section) (string, error) {
	if s.cfg.KrbConf.Template != "" {
		return krbconf.RenderTemplate(s.cfg.KrbConf.Template, sections)
	}
	return krbconf.Render(sections), nil
}

// krbConfSections merges the managed realm into the configured sections. The
// config slices are never mutated, every reconcile assembles a fresh copy.
func (s *Service) krbConfSections() []krbconf.Section {
	sections := make([]krbconf.Section, len(s.cfg.KrbConf.Sections))
	copy(sections, s.cfg.KrbConf.Sections)

	if s.cfg.Realm.Name == "" {
		return sections
	}

	realm := krbconf.Realm{Name: s.cfg.Realm.Name, Properties: s.cfg.Realm.Properties}
	for i := range sections {
		if sections[i].Name == "realms" {
			merged := make([]krbconf.Realm, 0, len(sections[i].Realms)+1)
			merged = append(merged, sections[i].Realms...)
			sections[i].Realms = append(merged, realm)
			return sections
		}
	}

	return append(sections, krbconf.Section{Name: "realms", Realms: []krbconf.Realm{realm}})
}

func (s *Service) runKinitChecks(ctx context.Context) error {
	for i := range s.cfg.Identities {
		if !s.cfg.Identities[i].VerifyKinit {
			continue
		}
		identity := s.cfg.Identities[i].Identity

		err := s.kadminSvc.TestKinit(ctx, &identity)
		s.emitAudit(ctx, "kinit_check", identity.Principal, err)
		if err != nil {
			s.state.setPhaseResult(phaseKinitChecks, false)
			return err
		}
		s.logger.Debug("verified identity via kinit", zap.String("principal", identity.Principal))
	}

	s.state.setPhaseResult(phaseKinitChecks, true)
	return nil
}

func (s *Service) adminIdentity() *kadmin.Identity {
	if s.cfg.Realm.Admin.Principal == "" {
		return nil
	}
	admin := s.cfg.Realm.Admin
	return &admin
}

func (s *Service) emitAudit(ctx context.Context, action, principal string, err error) {
	if s.auditSink == nil {
		return
	}

	event := audit.Event{
		Action:    action,
		Principal: principal,
		Realm:     s.cfg.Realm.Name,
		Success:   err == nil,
	}
	if err != nil {
		event.Detail = err.Error()
	}
	s.auditSink.Emit(ctx, event)
}

// keytabFileName turns a principal like service/host@EXAMPLE.COM into a flat
// file name (service_host.keytab).
func keytabFileName(principal string) string {
	name := principal
	if at := strings.Index(name, "@"); at != -1 {
		name = name[:at]
	}
	return strings.ReplaceAll(name, "/", "_") + ".keytab"
}
