package steam

// accountRefBase is the 64-bit reference of account id 0 in the public
// universe; short account ids are offsets from it.
const accountRefBase uint64 = 76561197960265728

// FriendResolver resolves short account ids and admin membership.
type FriendResolver struct{}

// ResolveAccountRef converts a short account id into its 64-bit reference.
func (FriendResolver) ResolveAccountRef(accountID uint32) uint64 {
	return accountRefBase + uint64(accountID)
}

// IsAdmin reports whether the account ref is in the admin set.
func (FriendResolver) IsAdmin(accountRef uint64, admins []uint64) bool {
	for _, admin := range admins {
		if admin == accountRef {
			return true
		}
	}
	return false
}
