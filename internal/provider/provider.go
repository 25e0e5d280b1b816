package provider

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Capability labels the kind of backend a provider talks to. The router
// treats tags opaquely (set membership only), so new tags can be added
// without touching routing logic.
type Capability string

const (
	CapabilityMetrics     Capability = "metrics"
	CapabilityLogs        Capability = "logs"
	CapabilityDiagnostics Capability = "diagnostics"
	CapabilityKnowledge   Capability = "knowledge"
	CapabilityTickets     Capability = "tickets"
	CapabilityRepos       Capability = "repos"
	CapabilityTraces      Capability = "traces"
	CapabilityUtilities   Capability = "utilities"
)

// Operation describes one callable unit exposed by a provider. The value is
// immutable once returned from Operations(); the router copies it when it
// assigns the final invocation name.
type Operation struct {
	// Name is the operation name local to the provider (e.g. "query").
	Name string
	// Description is shown to the LLM alongside the parameter schema.
	Description string
	// Capability tags what kind of backend answers this operation.
	Capability Capability
	// Schema is the JSON-schema parameter specification.
	Schema mcp.ToolInputSchema
}

// Provider is a single backend integration. The router exclusively owns
// provider instances for the duration of one session; a provider may
// additionally borrow a long-lived connection from the pool, which it must
// never close.
type Provider interface {
	// ID returns the stable, lowercase provider identifier used in tool naming.
	ID() string

	// Capabilities returns the capability tags this provider declares.
	Capabilities() []Capability

	// Operations returns the operations this provider currently offers.
	// The list may depend on the provider's scope configuration but must be
	// stable within one provider instance's lifetime.
	Operations() []Operation

	// Initialize acquires the provider's resources. Called once by the
	// router before the provider's operations enter the routing table.
	Initialize(ctx context.Context) error

	// Invoke executes an operation. Arguments have already been validated
	// against the operation schema by the caller layer.
	Invoke(ctx context.Context, operation string, args map[string]interface{}) (*Result, error)

	// Close releases the provider's resources. Must be idempotent.
	Close() error
}

// Discovery is the narrow view of the router that providers may hold as a
// non-owning back-reference. It allows a provider to discover and call
// sibling providers by capability tag or structural shape at call time.
type Discovery interface {
	ProvidersForCapability(tag Capability) []Provider
	ProvidersForProtocol(match func(Provider) bool) []Provider
}

// RouterAware is implemented by providers that need the discovery
// back-reference. SetRouter is called with the router at load time and with
// nil at teardown, so no reference outlives the router.
type RouterAware interface {
	SetRouter(d Discovery)
}

// Narrator is optionally implemented by providers that can produce a
// human-readable progress line for an operation. Absence means no narration.
type Narrator interface {
	StatusUpdate(operation string, args map[string]interface{}) string
}
