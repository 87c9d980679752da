// Package student содержит read-only модель профиля студента, которую
// потребляет ядро подбора кандидатов.
//
// Профиль редактируется вне этого сервиса; ядро только читает:
//
//   - квалификации (свободный текст: "BSc Computer Science", "Data Analysis")
//   - сертификаты
//   - опыт работы в месяцах
//   - транскрипты (непустой список означает завершённое обучение)
//
// # Источник кандидатов
//
// Repository.ListAll делает полный проход по всем студентам. Это известное
// ограничение масштабирования. CandidateSource позволяет подставить
// предварительно отфильтрованную выборку (например, по ключевым словам
// вакансии), не меняя логику отбора:
//
//	src := student.FullScan(repo)
//	candidates, err := src.Candidates(ctx, job.Qualifications)
package student
