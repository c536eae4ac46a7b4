package nodeconfig

import "crypto/rand"

func readRandom(b []byte) error {
	_, err := rand.Read(b)
	return err
}
