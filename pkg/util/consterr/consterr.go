package consterr

//ConstErr is used to be able to declare constants that are errors that are strings
type ConstErr string

//Error returns the value of the underlying string
func (errstr ConstErr) Error() string { return string(errstr) }

//ErrUnsupported can be used by device backends that do not implement an
// optional operation and serves as an example of how to use this simple package
const ErrUnsupported = ConstErr("This operation is not supported by this device")

var _ error = ErrUnsupported //compile time type check
