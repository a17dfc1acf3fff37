package domain

// steamIDOffset separates 64-bit Steam ids from the native 32-bit account
// id space the stats service keys on.
const steamIDOffset int64 = 76561197960265728

// NativeAccountID converts a 64-bit Steam id to the native account id. Ids
// already below the offset are returned unchanged, so config may carry
// either form.
func NativeAccountID(id int64) int64 {
	if id >= steamIDOffset {
		return id - steamIDOffset
	}
	return id
}

// SteamID64 converts a native account id back to the 64-bit Steam id.
func SteamID64(accountID int64) int64 {
	if accountID < steamIDOffset {
		return accountID + steamIDOffset
	}
	return accountID
}
