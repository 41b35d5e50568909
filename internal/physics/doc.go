// Package physics holds the built-in model systems whose invariant
// solutions the eigensolver analyzes. Each model is an autonomous
// [dynamo.System]; models with analytically known fixed points also
// implement [dynamo.EquilibriumProvider] so the driver can pick a base
// point without an external solution file.
package physics
