package domain

// Department is the organizational unit issues are routed to and users belong to.
type Department struct {
	ID   int64
	Name string
	Type string
}

// DepartmentDependents counts the rows still referencing a department.
type DepartmentDependents struct {
	Users    int
	Issues   int
	Licenses int
}

// Empty reports whether nothing references the department.
func (d DepartmentDependents) Empty() bool {
	return d.Users == 0 && d.Issues == 0 && d.Licenses == 0
}
