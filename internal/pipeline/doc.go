// Package pipeline provides a framework for executing audit steps in
// sequence.
//
// An audit runs through two stages: frontier expansion (crawling the site's
// internal link graph) and link resolution (determining each discovered
// link's terminal HTTP outcome). Each stage is a Step that receives the
// accumulated report and fills in its part.
//
// Design decision: We use a pipeline pattern instead of direct function
// calls because:
//  1. It allows easy addition/removal of steps without modifying core logic
//  2. It provides consistent error handling and logging across steps
//  3. It supports cancellation via context for long-running audits
package pipeline
