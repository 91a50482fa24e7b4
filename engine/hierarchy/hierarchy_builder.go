package hierarchy

// treeConfig collects construction settings for a Tree.
type treeConfig struct {
	capacity int
}

// TreeBuilderOption is a functional option for configuring a Tree during construction.
type TreeBuilderOption func(*treeConfig)

// WithCapacity is an option builder that pre-allocates arena space for the given number of nodes.
//
// Parameters:
//   - capacity: the number of node slots to reserve
//
// Returns:
//   - TreeBuilderOption: a function that applies the capacity option to a tree
func WithCapacity(capacity int) TreeBuilderOption {
	return func(c *treeConfig) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}
