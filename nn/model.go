package nn

// Model is a built backbone ready for inference.
//
// NamedParameters exposes every learnable tensor under a stable name so
// that checkpoints can be saved and restored by name.
type Model interface {
	Forward(x *Tensor) *Tensor
	NamedParameters() map[string]*Tensor
	NumClasses() int
}
