// Package dynamo provides the state primitives shared by the optimal-control
// stack.
//
// The package separates a state's stored representation from its tangent
// space:
//
//   - [State]: stored vector x = (q, v) of size nx
//   - [Base]: immutable dimensional bookkeeping (nx, ndx, nq, nv)
//   - [Manifold]: the capability every state representation implements
//     (dimensions plus Integrate, Diff and their Jacobians)
//   - [StateVector]: Euclidean states where nq == nv
//   - [StateMultibody]: free-flyer or fixed-base robot states
//
// # Example
//
//	st, _ := dynamo.NewStateMultibody(model)
//	dx := st.Diff(x0, x1)          // size st.Ndx()
//	x2 := st.Integrate(x0, dx)     // x2 == x1 up to round-off
//
// # Thread Safety
//
// Manifolds are immutable after construction and safe for concurrent use.
package dynamo
