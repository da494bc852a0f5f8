// Package gpt implements engine.Client on top of SNAP's Graph Processing Tool.
//
// Invoke does not run anything. It records the operator and its sources and
// returns a lazy product. Write renders the product's pending operator chain
// as a gpt graph (Read nodes for products already on disk, one node per
// pending operator, a final Write node), saves it under the graph work
// directory, and runs `gpt <graph.xml>`. After a successful write the product
// is backed by the written file, so later graphs read it instead of
// recomputing it.
//
// Prefer this package over ad-hoc exec usage when talking to gpt.
package gpt
