package connectors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/qa-extract/internal/connectors/affinitygroups"
	"github.com/custodia-labs/qa-extract/internal/connectors/allocations"
	"github.com/custodia-labs/qa-extract/internal/connectors/cleaning"
	"github.com/custodia-labs/qa-extract/internal/connectors/computeresources"
	"github.com/custodia-labs/qa-extract/internal/connectors/nsfawards"
	"github.com/custodia-labs/qa-extract/internal/connectors/software"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Info describes a domain's source.
type Info struct {
	Domain      string
	Name        string
	Description string

	// Tools are the tool names the source calls.
	Tools []string
}

// Config carries what every source is built from.
type Config struct {
	Extraction domain.ExtractionSettings
}

type builder func(caller driven.ToolCaller, cfg Config, scrub *cleaning.Scrubber) driven.EntitySource

type entry struct {
	info  Info
	build builder
}

// Registry knows the built-in domain sources.
type Registry struct {
	entries map[string]entry
}

// NewRegistry creates a registry with every built-in source.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]entry)}
	r.registerComputeResources()
	r.registerSoftware()
	r.registerAllocations()
	r.registerNSFAwards()
	r.registerAffinityGroups()
	return r
}

func (r *Registry) registerComputeResources() {
	r.entries[domain.DomainComputeResources] = entry{
		info: Info{
			Domain:      domain.DomainComputeResources,
			Name:        "Compute Resources",
			Description: "HPC and storage resources with hardware detail",
			Tools:       []string{computeresources.ToolSearch, computeresources.ToolHardware},
		},
		build: func(caller driven.ToolCaller, cfg Config, scrub *cleaning.Scrubber) driven.EntitySource {
			return computeresources.New(caller, computeresources.Config{
				MaxDetailItems: cfg.Extraction.MaxDetailItems,
				Scrubber:       scrub,
			})
		},
	}
}

func (r *Registry) registerSoftware() {
	r.entries[domain.DomainSoftware] = entry{
		info: Info{
			Domain:      domain.DomainSoftware,
			Name:        "Software Discovery",
			Description: "Installed software packages searched by common names",
			Tools:       []string{software.ToolSearch},
		},
		build: func(caller driven.ToolCaller, cfg Config, scrub *cleaning.Scrubber) driven.EntitySource {
			return software.New(caller, software.Config{
				MaxQueries:  cfg.Extraction.MaxQueries,
				SearchLimit: cfg.Extraction.SearchLimit,
				Scrubber:    scrub,
			})
		},
	}
}

func (r *Registry) registerAllocations() {
	r.entries[domain.DomainAllocations] = entry{
		info: Info{
			Domain:      domain.DomainAllocations,
			Name:        "Allocations",
			Description: "Active allocation projects",
			Tools:       []string{allocations.ToolSearch},
		},
		build: func(caller driven.ToolCaller, cfg Config, scrub *cleaning.Scrubber) driven.EntitySource {
			return allocations.New(caller, allocations.Config{
				MaxQueries: cfg.Extraction.MaxQueries,
				Scrubber:   scrub,
			})
		},
	}
}

func (r *Registry) registerNSFAwards() {
	r.entries[domain.DomainNSFAwards] = entry{
		info: Info{
			Domain:      domain.DomainNSFAwards,
			Name:        "NSF Awards",
			Description: "NSF awards related to research computing",
			Tools:       []string{nsfawards.ToolSearch},
		},
		build: func(caller driven.ToolCaller, cfg Config, scrub *cleaning.Scrubber) driven.EntitySource {
			return nsfawards.New(caller, nsfawards.Config{
				MaxQueries:  cfg.Extraction.MaxQueries,
				SearchLimit: cfg.Extraction.SearchLimit,
				Scrubber:    scrub,
			})
		},
	}
}

func (r *Registry) registerAffinityGroups() {
	r.entries[domain.DomainAffinityGroups] = entry{
		info: Info{
			Domain:      domain.DomainAffinityGroups,
			Name:        "Affinity Groups",
			Description: "Community groups with events and knowledge base topics",
			Tools:       []string{affinitygroups.ToolSearch},
		},
		build: func(caller driven.ToolCaller, cfg Config, scrub *cleaning.Scrubber) driven.EntitySource {
			return affinitygroups.New(caller, affinitygroups.Config{
				MaxDetailItems: cfg.Extraction.MaxDetailItems,
				Scrubber:       scrub,
			})
		},
	}
}

// List returns every source in canonical domain order.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	order := make(map[string]int)
	for i, d := range domain.AllDomains() {
		order[d] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Domain] < order[out[j].Domain] })
	return out
}

// Get returns one source's info.
func (r *Registry) Get(name string) (Info, error) {
	e, ok := r.entries[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, name)
	}
	return e.info, nil
}

// NewSource builds the source for a domain calling tools through caller.
func (r *Registry) NewSource(name string, caller driven.ToolCaller, cfg Config) (driven.EntitySource, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, name)
	}
	scrub := cleaning.NewScrubber(cfg.Extraction.ScrubFields, cfg.Extraction.ScrubEmails)
	return e.build(caller, cfg, scrub), nil
}
