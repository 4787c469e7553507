package reset

import (
	"fmt"
	"time"

	"github.com/rapidcare/rapidcare/internal/domain/ambulance"
	"github.com/rapidcare/rapidcare/internal/domain/bed"
	"github.com/rapidcare/rapidcare/internal/domain/doctor"
	"github.com/rapidcare/rapidcare/internal/domain/hospital"
	"github.com/rapidcare/rapidcare/internal/platform/geo"
)

// dataset is one complete set of demo records.
type dataset struct {
	hospitals  []*hospital.Hospital
	doctors    []*doctor.Doctor
	ambulances []*ambulance.Ambulance
	beds       []*bed.Bed
	attendance []*doctor.Attendance
}

func (d *dataset) counts() Counts {
	return Counts{
		Hospitals:  len(d.hospitals),
		Doctors:    len(d.doctors),
		Ambulances: len(d.ambulances),
		Beds:       len(d.beds),
		Attendance: len(d.attendance),
	}
}

// demoData builds the demo network. Every account shares passwordHash and
// must change it on first login.
func demoData(passwordHash string, now time.Time) *dataset {
	d := &dataset{}

	d.hospitals = []*hospital.Hospital{
		{
			HospitalID: "HOSP001",
			Name:       "RapidCare General Hospital",
			Contact:    "9999999999",
			Address:    hospital.Address{State: "Chhattisgarh", District: "Raipur", City: "Raipur", Street: "MG Road"},
			Location:   &geo.Point{Lat: 21.2514, Lng: 81.6296},
			Services:   []string{"Emergency", "OPD", "Surgery"},
			Facilities: []string{"Pharmacy", "ICU", "Radiology", "Laboratory"},
			Insurance:  []string{"ABC Health", "XYZ Insure", "MediCare"},
			Treatment:  []string{"Cardiology", "Orthopedics", "Neurology", "Pediatrics"},
			Surgery:    []string{"Appendectomy", "Gallbladder", "Hernia"},
			Therapy:    []string{"Physiotherapy", "Occupational Therapy"},
		},
		{
			HospitalID: "HOSP002",
			Name:       "City Multispeciality Hospital",
			Contact:    "8888888888",
			Address:    hospital.Address{State: "Chhattisgarh", District: "Raipur", City: "Naya Raipur", Street: "Sector 21"},
			Location:   &geo.Point{Lat: 21.1610, Lng: 81.7870},
			Services:   []string{"Emergency", "Diagnostics", "Surgery"},
			Facilities: []string{"Radiology", "ICU", "Laboratory", "Pharmacy"},
			Insurance:  []string{"ABC Health", "MediCare"},
			Treatment:  []string{"Neurology", "Cardiology", "Oncology"},
			Surgery:    []string{"Bypass", "Brain Surgery", "Cancer Surgery"},
			Therapy:    []string{"Occupational", "Speech Therapy"},
		},
		{
			HospitalID: "HOSP003",
			Name:       "Raipur Medical Center",
			Contact:    "7777777777",
			Address:    hospital.Address{State: "Chhattisgarh", District: "Raipur", City: "Raipur", Street: "Civil Lines"},
			Location:   &geo.Point{Lat: 21.2380, Lng: 81.6337},
			Services:   []string{"Emergency", "OPD", "Maternity"},
			Facilities: []string{"ICU", "NICU", "Laboratory", "Pharmacy"},
			Insurance:  []string{"XYZ Insure", "MediCare", "Health Plus"},
			Treatment:  []string{"Gynecology", "Pediatrics", "General Medicine"},
			Surgery:    []string{"C-Section", "Hysterectomy", "Appendectomy"},
			Therapy:    []string{"Physiotherapy", "Occupational Therapy"},
		},
	}
	for _, h := range d.hospitals {
		h.Password, h.ForcePasswordChange = passwordHash, true
		h.CreatedAt, h.UpdatedAt = now, now
	}

	d.doctors = []*doctor.Doctor{
		{HospitalID: "HOSP001", DoctorID: "DOC100", Name: "Dr. A Sharma", Qualification: "MBBS, MD", Speciality: "Cardiology", Experience: "10 yrs", Availability: doctor.Available, Shift: doctor.ShiftMorning},
		{HospitalID: "HOSP001", DoctorID: "DOC101", Name: "Dr. B Verma", Qualification: "MBBS, MS", Speciality: "Orthopedics", Experience: "7 yrs", Availability: doctor.Available, Shift: doctor.ShiftAfternoon},
		{HospitalID: "HOSP002", DoctorID: "DOC102", Name: "Dr. C Patel", Qualification: "MBBS, MD", Speciality: "Neurology", Experience: "12 yrs", Availability: doctor.NotAvailable, Shift: doctor.ShiftEvening},
		{HospitalID: "HOSP003", DoctorID: "DOC103", Name: "Dr. D Singh", Qualification: "MBBS, MS", Speciality: "Gynecology", Experience: "8 yrs", Availability: doctor.Available, Shift: doctor.ShiftMorning},
	}
	for _, doc := range d.doctors {
		doc.Password, doc.ForcePasswordChange = passwordHash, true
		doc.CreatedAt, doc.UpdatedAt = now, now
	}

	d.ambulances = []*ambulance.Ambulance{
		{
			HospitalID: "HOSP001", AmbulanceID: "AMB001", AmbulanceNumber: "CG04-1234", VehicleNumber: "CG04-1234",
			EMTID: "EMT01", EMT: &ambulance.CrewMember{EMTID: "EMT01", Name: "Ravi Kumar", Mobile: "9000000001"},
			DriverID: "PIL01", Pilot: &ambulance.CrewMember{PilotID: "PIL01", Name: "Vikram Singh", Mobile: "9000000002"},
			Status: ambulance.StatusOnDuty,
		},
		{
			HospitalID: "HOSP002", AmbulanceID: "AMB002", AmbulanceNumber: "CG04-5678", VehicleNumber: "CG04-5678",
			EMTID: "EMT02", EMT: &ambulance.CrewMember{EMTID: "EMT02", Name: "Suresh Yadav", Mobile: "9000000003"},
			DriverID: "PIL02", Pilot: &ambulance.CrewMember{PilotID: "PIL02", Name: "Rajesh Kumar", Mobile: "9000000004"},
			Status: ambulance.StatusOffline,
		},
	}
	for _, a := range d.ambulances {
		a.VehicleType = ambulance.VehicleBLS
		a.Password, a.ForcePasswordChange = passwordHash, true
		a.CreatedAt, a.UpdatedAt = now, now
	}

	for _, h := range d.hospitals {
		for i := 1; i <= 3; i++ {
			d.beds = append(d.beds, demoBed(h.HospitalID, "ICU", "ICU", bed.TypeICU, i, i%2 == 0, now))
		}
		for i := 1; i <= 10; i++ {
			d.beds = append(d.beds, demoBed(h.HospitalID, "W1", "1", bed.TypeGeneral, i, i%3 == 0, now))
		}
	}

	day := now.Format(time.DateOnly)
	for _, doc := range d.doctors[:2] {
		d.attendance = append(d.attendance, &doctor.Attendance{
			DoctorID:     doc.DoctorID,
			HospitalID:   doc.HospitalID,
			Date:         day,
			Availability: doctor.Present,
			Shift:        doc.Shift,
			MarkedBy:     doctor.MarkedByReception,
			Method:       doctor.MethodManual,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return d
}

func demoBed(hospitalID, prefix, ward, bedType string, n int, occupied bool, now time.Time) *bed.Bed {
	number := fmt.Sprintf("%02d", n)
	b := &bed.Bed{
		BedID:       fmt.Sprintf("%s-%s-B%s", hospitalID, prefix, number),
		HospitalID:  hospitalID,
		BedNumber:   number,
		WardNumber:  ward,
		BedType:     bedType,
		Status:      bed.StatusVacant,
		LastUpdated: now,
		CreatedAt:   now,
	}
	if occupied {
		b.Status = bed.StatusOccupied
		b.OccupiedAt = &now
	}
	return b
}
