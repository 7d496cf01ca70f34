package directory

import (
	"context"
	"fmt"

	"WardMonitorAPI/internal/config"
	"WardMonitorAPI/internal/logger"

	"github.com/go-ldap/ldap/v3"
)

// LDAPDirectory enriches subject lookups from the hospital directory.
// The subject's MRN (from the subjects table) keys the LDAP search; any
// failure along the way falls back to the repository-backed values, so
// a directory outage only degrades the notification text.
type LDAPDirectory struct {
	cfg      config.LDAPConfig
	subjects SubjectLookup
	fallback *RepoDirectory
	log      *logger.Logger
}

func NewLDAPDirectory(cfg config.LDAPConfig, subjects SubjectLookup, log *logger.Logger) *LDAPDirectory {
	return &LDAPDirectory{
		cfg:      cfg,
		subjects: subjects,
		fallback: NewRepoDirectory(subjects, log),
		log:      log,
	}
}

func (d *LDAPDirectory) LookupName(ctx context.Context, subjectID int) (string, error) {
	entry, err := d.search(ctx, subjectID, d.cfg.NameAttribute)
	if err != nil {
		d.log.Debug("LDAP name lookup failed for subject %d, using local record: %v", subjectID, err)
		return d.fallback.LookupName(ctx, subjectID)
	}
	return entry, nil
}

func (d *LDAPDirectory) LookupNotifyEmail(ctx context.Context, subjectID int) (string, error) {
	entry, err := d.search(ctx, subjectID, d.cfg.EmailAttribute)
	if err != nil {
		d.log.Debug("LDAP email lookup failed for subject %d, using local record: %v", subjectID, err)
		return d.fallback.LookupNotifyEmail(ctx, subjectID)
	}
	return entry, nil
}

// search resolves the subject's MRN locally, then pulls one attribute
// from the matching directory entry.
func (d *LDAPDirectory) search(ctx context.Context, subjectID int, attribute string) (string, error) {
	subject, err := d.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve MRN for subject %d: %w", subjectID, err)
	}
	if subject == nil || subject.MRN == "" {
		return "", fmt.Errorf("subject %d has no MRN", subjectID)
	}

	conn, err := ldap.DialURL(d.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("failed to dial LDAP server: %w", err)
	}
	defer conn.Close()

	conn.SetTimeout(d.cfg.Timeout)

	if d.cfg.BindDN != "" {
		if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPass); err != nil {
			return "", fmt.Errorf("LDAP bind failed: %w", err)
		}
	}

	req := ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, 0, false,
		fmt.Sprintf("(employeeNumber=%s)", ldap.EscapeFilter(subject.MRN)),
		[]string{attribute},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return "", fmt.Errorf("LDAP search failed: %w", err)
	}
	if len(result.Entries) == 0 {
		return "", fmt.Errorf("no directory entry for MRN %s", subject.MRN)
	}

	value := result.Entries[0].GetAttributeValue(attribute)
	if value == "" {
		return "", fmt.Errorf("directory entry for MRN %s has no %s", subject.MRN, attribute)
	}

	return value, nil
}
