package scene

import "fmt"

func errIDTaken(id uint8) error {
	return fmt.Errorf("scene: id %d already held by a statically-registered replicable", id)
}

func errPoolExhausted() error {
	return fmt.Errorf("scene: no free replicable ids (pool size %d)", MaxReplicables)
}
