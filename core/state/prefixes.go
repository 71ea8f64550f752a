package state

var (
	lamportsPrefix     = []byte("account/lamports/")
	tokenAccountPrefix = []byte("token/account/")
	mintPrefix         = []byte("token/mint/")
	orderPrefix        = []byte("swap/order/")
	rentSysvarKey      = []byte("sysvar/rent")
)

func prefixedKey(prefix, addr []byte) []byte {
	buf := make([]byte, len(prefix)+len(addr))
	copy(buf, prefix)
	copy(buf[len(prefix):], addr)
	return buf
}
