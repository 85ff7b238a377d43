package hdf5

import "path"

// WalkFunc is called for each object during traversal.
// obj is either *Group or *Dataset; err is any error opening it.
// Return nil to continue walking, or an error to stop.
type WalkFunc func(path string, obj any, err error) error

// Walk visits g and every group and dataset below it, members in sorted
// order.
//
//	Walk(f.Root(), func(path string, obj any, err error) error {
//	    if ds, ok := obj.(*Dataset); ok {
//	        fmt.Println(path, ds.Shape())
//	    }
//	    return err
//	})
func Walk(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}

	members, err := g.Members()
	if err != nil {
		return err
	}
	for _, name := range members {
		childPath := path.Join(g.Path(), name)
		obj, err := g.open(name)
		if err != nil {
			if err := fn(childPath, nil, err); err != nil {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			if err := Walk(o, fn); err != nil {
				return err
			}
		case *Dataset:
			if err := fn(childPath, o, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
