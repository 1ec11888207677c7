package domain

// AnonymousPrincipal is the textual principal the identity provider reports
// for an unauthenticated caller.
const AnonymousPrincipal = "2vxsx-fae"

// Identity is an opaque principal. The cart core only ever asks whether it is
// authenticated; two identities are the same session owner iff they are ==.
type Identity struct {
	principal string
}

var Anonymous = Identity{}

func NewIdentity(principal string) Identity {
	if principal == AnonymousPrincipal {
		return Anonymous
	}
	return Identity{principal: principal}
}

func (i Identity) IsAuthenticated() bool {
	return i.principal != ""
}

func (i Identity) Principal() string {
	if !i.IsAuthenticated() {
		return AnonymousPrincipal
	}
	return i.principal
}

func (i Identity) String() string {
	if !i.IsAuthenticated() {
		return "anonymous"
	}
	return i.principal
}
