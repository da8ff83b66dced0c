package buffer

import "fmt"

type rangeError struct {
	offset, size, capacity int
}

func (e rangeError) Error() string {
	return fmt.Sprintf("%v: [%d, %d) exceeds %d bytes", ErrOutOfRange, e.offset, e.offset+e.size, e.capacity)
}

func (e rangeError) Unwrap() error {
	return ErrOutOfRange
}
