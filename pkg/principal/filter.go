package principal

import (
	"github.com/krbsync/krbsync/internal/logger"
	"github.com/krbsync/krbsync/pkg/syncerr"
)

// LookupFunc reports whether a principal exists in the authoritative
// Kerberos database. "Not found" is a normal negative answer (false,
// nil); only lookups that fail for other reasons return an error.
type LookupFunc func(name string) (bool, error)

// Filter decides whether an event for a principal is eligible for
// propagation to the secondary identity store.
type Filter struct {
	// Instances is the allow-list of instance names whose multi-part
	// principals are still propagated. Matching is exact, case-sensitive
	// and whole-token.
	Instances []string

	// BaseInstance, when set, redirects password changes: a single-part
	// principal is skipped when the principal formed by appending
	// BaseInstance exists, because that instance's password propagates
	// as the base account instead.
	BaseInstance string

	// Lookup resolves the base-instance existence check. Required only
	// when BaseInstance is set.
	Lookup LookupFunc
}

// Eligible applies the propagation rules to p. pwchange selects the
// password-change rules, which are the only ones consulting
// BaseInstance. Ineligible decisions are logged at debug level; a failed
// lookup aborts the dispatch with a filter error rather than defaulting
// to either outcome.
func (f *Filter) Eligible(p Principal, pwchange bool) (bool, error) {
	if pwchange && len(p.Components) == 1 && f.BaseInstance != "" {
		if f.Lookup == nil {
			return false, syncerr.Filter(nil, "base instance %q configured but no directory lookup available", f.BaseInstance)
		}
		exists, err := f.Lookup(p.WithInstance(f.BaseInstance).String())
		if err != nil {
			return false, err
		}
		if exists {
			logger.Debug("ignoring principal because its base instance exists",
				"principal", p.String(), "instance", f.BaseInstance)
			return false, nil
		}
	} else if len(p.Components) > 1 {
		if !f.instanceAllowed(p.Instance()) {
			logger.Debug("ignoring principal with non-null instance",
				"principal", p.String())
			return false, nil
		}
	}
	return true, nil
}

// instanceAllowed reports whether instance is in the allow-list. The
// base instance always counts as allowed since its changes are the ones
// redirected to the base account.
func (f *Filter) instanceAllowed(instance string) bool {
	if instance == "" {
		return false
	}
	if f.BaseInstance != "" && instance == f.BaseInstance {
		return true
	}
	for _, allowed := range f.Instances {
		if instance == allowed {
			return true
		}
	}
	return false
}
