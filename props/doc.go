// Package props persists named property sets in a coordination tree.
//
// A property set named "db" stored under the default root path is laid out
// as one node per property:
//
//	/etc/property-sets/db          (empty payload)
//	/etc/property-sets/db/host     "localhost"
//	/etc/property-sets/db/port     "6969"
//
// [Storage.Store] replaces a set wholesale: the previous subtree is removed
// before the new one is written, so keys dropped from a set do not survive.
// The store offers no multi-node transactions. A failure halfway through a
// Store leaves a mixed subtree behind and is reported, not rolled back.
//
// A Storage owns its session. Release it with Close when done:
//
//	storage, err := zkclient.NewFactory("zk1:2181,zk2:2181").Create(ctx)
//	if err != nil {
//	    return err
//	}
//	defer storage.Close()
package props
