// Package decrypt implements the stream cipher protecting catalog media:
// per-track Blowfish key derivation, the legacy AES-ECB URL signature,
// and the striped super-block decryption applied to downloaded bytes.
package decrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/nvalden/discsync/internal/constants"
)

const (
	superBlockSize = 6144
	stripeSize     = 2048

	trackKeySecret  = "g4el58wc0zvf9na1"
	legacyCipherKey = "jo6aey6haid2Teih"
	legacyDelimiter = 0xa4
)

// stripeIV is the fixed CBC IV reused for every super-block.
var stripeIV = []byte{0, 1, 2, 3, 4, 5, 6, 7}

// TrackKey derives the 16-byte Blowfish key for a track id: the two
// halves of the id's MD5 hex digest XORed with the application secret,
// byte by byte.
func TrackKey(trackID string) []byte {
	sum := md5.Sum([]byte(trackID))
	digest := hex.EncodeToString(sum[:])

	key := make([]byte, 16)
	for i := 0; i < 16; i++ {
		key[i] = digest[i] ^ digest[i+16] ^ trackKeySecret[i]
	}
	return key
}

// LegacyPath signs a {content hash, format code, track id, media version}
// tuple into the hex CDN path component: the fields joined with the 0xa4
// delimiter, prefixed by their MD5 hex digest, delimited again,
// zero-padded to the AES block size and encrypted ECB with the fixed
// application key. Short hashes and zero media versions are signed
// as-is; the scheme is unversioned and callers rely on the observed
// behavior.
func LegacyPath(md5Origin string, formatCode int, trackID, mediaVersion string) string {
	sep := []byte{legacyDelimiter}
	joined := bytes.Join([][]byte{
		[]byte(md5Origin),
		[]byte(strconv.Itoa(formatCode)),
		[]byte(trackID),
		[]byte(mediaVersion),
	}, sep)

	sum := md5.Sum(joined)

	plain := make([]byte, 0, md5.Size*2+len(joined)+2+aes.BlockSize)
	plain = append(plain, hex.EncodeToString(sum[:])...)
	plain = append(plain, legacyDelimiter)
	plain = append(plain, joined...)
	plain = append(plain, legacyDelimiter)
	if rem := len(plain) % aes.BlockSize; rem != 0 {
		plain = append(plain, make([]byte, aes.BlockSize-rem)...)
	}

	block, err := aes.NewCipher([]byte(legacyCipherKey))
	if err != nil {
		// 16-byte key, cannot fail
		panic(err)
	}

	out := make([]byte, len(plain))
	for i := 0; i < len(plain); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], plain[i:i+aes.BlockSize])
	}
	return hex.EncodeToString(out)
}

// LegacyURL builds the full legacy media URL for a track. The CDN
// shard is the first hex digit of the content hash.
func LegacyURL(md5Origin string, formatCode int, trackID, mediaVersion string) string {
	shard := ""
	if md5Origin != "" {
		shard = string(md5Origin[0])
	}
	return fmt.Sprintf(constants.LegacyCDNURL, shard, LegacyPath(md5Origin, formatCode, trackID, mediaVersion))
}
