package pxfile

import "hash/crc32"

// PasswordChecksum computes the checksum stored in the header's encryption
// word for a given table password. A file opener validates a candidate
// password by comparing this against EncryptionChecksum.
func PasswordChecksum(password string) uint32 {
	return crc32.ChecksumIEEE([]byte(password))
}
